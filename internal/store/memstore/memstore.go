// Package memstore is an in-process implementation of the store contracts.
// It backs STORE_BACKEND=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"confhub/internal/common"
	"confhub/internal/models"
	"confhub/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Manager owns every in-memory collection behind a single lock.
type Manager struct {
	mu         sync.Mutex
	users      map[primitive.ObjectID]*models.User
	speakers   map[primitive.ObjectID]*models.Speaker
	sessions   map[primitive.ObjectID]*models.Session
	activities map[primitive.ObjectID]*models.LoginActivity
}

var _ store.Manager = (*Manager)(nil)

func New() *Manager {
	return &Manager{
		users:      map[primitive.ObjectID]*models.User{},
		speakers:   map[primitive.ObjectID]*models.Speaker{},
		sessions:   map[primitive.ObjectID]*models.Session{},
		activities: map[primitive.ObjectID]*models.LoginActivity{},
	}
}

func (m *Manager) Users() store.Users           { return &users{m} }
func (m *Manager) Speakers() store.Speakers     { return &speakers{m} }
func (m *Manager) Sessions() store.Sessions     { return &sessions{m} }
func (m *Manager) Activities() store.Activities { return &activities{m} }
func (m *Manager) Close(context.Context) error  { return nil }

// sortedIDs orders ids by creation: timestamp prefix, then process counter.
func sortedIDs[T any](m map[primitive.ObjectID]T) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids
}

type users struct{ m *Manager }

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LockUntil != nil {
		t := *u.LockUntil
		c.LockUntil = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	if u.Accompanying != nil {
		a := *u.Accompanying
		c.Accompanying = &a
	}
	c.SessionsAttended = append([]primitive.ObjectID(nil), u.SessionsAttended...)
	return &c
}

func (r *users) Create(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, ok := r.m.users[u.ID]; ok {
		return common.ErrConflict
	}
	r.m.users[u.ID] = cloneUser(u)
	return nil
}

func (r *users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *users) find(match func(*models.User) bool) []*models.User {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.User
	for _, id := range sortedIDs(r.m.users) {
		if u := r.m.users[id]; match(u) {
			out = append(out, cloneUser(u))
		}
	}
	return out
}

func (r *users) FindByFirstName(_ context.Context, firstName string) ([]*models.User, error) {
	return r.find(func(u *models.User) bool {
		return !u.IsAdmin && u.PersonalInformation.FullName.FirstName == firstName
	}), nil
}

func (r *users) FindByEmail(_ context.Context, email string) ([]*models.User, error) {
	return r.find(func(u *models.User) bool {
		return !u.IsAdmin && strings.EqualFold(u.PersonalInformation.EmailAddress, email)
	}), nil
}

func (r *users) FindAdminByEmail(_ context.Context, email string) (*models.User, error) {
	found := r.find(func(u *models.User) bool {
		return u.IsAdmin && strings.EqualFold(u.Email, email)
	})
	if len(found) == 0 {
		return nil, common.ErrNotFound
	}
	return found[0], nil
}

func (r *users) List(_ context.Context, filter store.UserFilter) ([]*models.User, error) {
	return r.find(func(u *models.User) bool {
		if u.IsAdmin && !filter.IncludeAdmins {
			return false
		}
		return filter.Institution == "" || u.PersonalInformation.Institution == filter.Institution
	}), nil
}

func (r *users) Save(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[u.ID]; !ok {
		return common.ErrNotFound
	}
	r.m.users[u.ID] = cloneUser(u)
	return nil
}

func (r *users) AddAttendedSession(_ context.Context, userID, sessionID primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.SessionsAttended = append(u.SessionsAttended, sessionID)
	return nil
}

func (r *users) DeleteByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.m.users, id)
	return u, nil
}

type speakers struct{ m *Manager }

func cloneSpeaker(s *models.Speaker) *models.Speaker {
	c := *s
	return &c
}

func (r *speakers) Create(_ context.Context, s *models.Speaker) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.Email != "" {
		for _, existing := range r.m.speakers {
			if strings.EqualFold(existing.Email, s.Email) {
				return common.ErrConflict
			}
		}
	}
	r.m.speakers[s.ID] = cloneSpeaker(s)
	return nil
}

func (r *speakers) FindByID(_ context.Context, id primitive.ObjectID) (*models.Speaker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.speakers[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneSpeaker(s), nil
}

func (r *speakers) FindByEmail(_ context.Context, email string) (*models.Speaker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, id := range sortedIDs(r.m.speakers) {
		if s := r.m.speakers[id]; email != "" && strings.EqualFold(s.Email, email) {
			return cloneSpeaker(s), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *speakers) List(_ context.Context) ([]*models.Speaker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Speaker, 0, len(r.m.speakers))
	for _, id := range sortedIDs(r.m.speakers) {
		out = append(out, cloneSpeaker(r.m.speakers[id]))
	}
	return out, nil
}

func (r *speakers) Save(_ context.Context, s *models.Speaker) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.speakers[s.ID]; !ok {
		return common.ErrNotFound
	}
	r.m.speakers[s.ID] = cloneSpeaker(s)
	return nil
}

func (r *speakers) DeleteByID(_ context.Context, id primitive.ObjectID) (*models.Speaker, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.speakers[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.m.speakers, id)
	return s, nil
}

type sessions struct{ m *Manager }

func cloneSession(s *models.Session) *models.Session {
	c := *s
	if s.ActualStartTime != nil {
		t := *s.ActualStartTime
		c.ActualStartTime = &t
	}
	if s.ActualEndTime != nil {
		t := *s.ActualEndTime
		c.ActualEndTime = &t
	}
	c.Speakers = append([]primitive.ObjectID(nil), s.Speakers...)
	c.Attendance = append([]models.AttendanceEntry{}, s.Attendance...)
	c.Comments = append([]models.Comment{}, s.Comments...)
	return &c
}

func (r *sessions) Create(_ context.Context, s *models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.Status == models.SessionInProgress {
		for _, other := range r.m.sessions {
			if other.Status == models.SessionInProgress {
				return common.ErrConflict
			}
		}
	}
	r.m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *sessions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *sessions) List(_ context.Context) ([]*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*models.Session, 0, len(r.m.sessions))
	for _, id := range sortedIDs(r.m.sessions) {
		out = append(out, cloneSession(r.m.sessions[id]))
	}
	return out, nil
}

// Start holds the manager lock across the running check and the write.
func (r *sessions) Start(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.sessions {
		if other.Status == models.SessionInProgress {
			return nil, common.ErrConflict
		}
	}
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if s.Status != models.SessionScheduled {
		return nil, common.ErrInvalidTransition
	}
	s.Status = models.SessionInProgress
	s.ActualStartTime = &at
	s.UpdatedAt = at
	return cloneSession(s), nil
}

func (r *sessions) Transition(_ context.Context, id primitive.ObjectID, from []models.SessionStatus, to models.SessionStatus, at time.Time) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if s.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, common.ErrInvalidTransition
	}
	s.Status = to
	if to == models.SessionCompleted {
		s.ActualEndTime = &at
	}
	s.UpdatedAt = at
	return cloneSession(s), nil
}

func (r *sessions) AddAttendance(_ context.Context, id primitive.ObjectID, entry models.AttendanceEntry) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if s.HasAttendee(entry.Attendee) {
		return nil, common.ErrConflict
	}
	s.Attendance = append(s.Attendance, entry)
	s.UpdatedAt = entry.JoinTime
	return cloneSession(s), nil
}

func (r *sessions) AddComment(_ context.Context, id primitive.ObjectID, c models.Comment) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	s.Comments = append(s.Comments, c)
	s.UpdatedAt = c.Timestamp
	return cloneSession(s), nil
}

type activities struct{ m *Manager }

func (r *activities) Append(_ context.Context, a *models.LoginActivity) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	c := *a
	r.m.activities[a.ID] = &c
	return nil
}

func (r *activities) List(_ context.Context, limit int) ([]*models.LoginActivity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := sortedIDs(r.m.activities)
	out := make([]*models.LoginActivity, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		c := *r.m.activities[ids[i]]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *activities) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.activities[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.m.activities, id)
	return nil
}
