// Package sessions runs the conference session lifecycle: scheduling,
// the start/end/cancel transitions, attendance and comments.
package sessions

import (
	"context"
	"errors"
	"strings"
	"time"

	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/models"
	"confhub/internal/notify"
	"confhub/internal/store"
	"confhub/internal/util"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateRequest describes a new session.
type CreateRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Speakers    []string  `json:"speakers"`
	Remarks     string    `json:"remarks"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Validate checks the required fields and the time order.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.By(notBlank)),
		validation.Field(&r.StartTime, validation.Required),
		validation.Field(&r.EndTime, validation.Required, validation.By(func(any) error {
			if !r.StartTime.IsZero() && !r.EndTime.After(r.StartTime) {
				return errors.New("must be after startTime")
			}
			return nil
		})),
	)
}

func notBlank(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// AttendeeView is one attendance entry with the attendee's display name.
type AttendeeView struct {
	Attendee models.AttendeeRef `json:"attendee"`
	Name     string             `json:"name"`
	Role     string             `json:"role"`
	JoinTime time.Time          `json:"joinTime"`
}

// CommentView is one comment with its author's display name.
type CommentView struct {
	Attendee  models.AttendeeRef `json:"attendee"`
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	Comment   string             `json:"comment"`
	Timestamp time.Time          `json:"timestamp"`
}

// Manager applies session operations against the store.
type Manager struct {
	sessions  store.Sessions
	users     store.Users
	speakers  store.Speakers
	publisher notify.Publisher
	log       logging.Logger
	now       func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source for state changes and comments.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager returns a Manager that publishes session events to publisher.
func NewManager(sessions store.Sessions, users store.Users, speakers store.Speakers, publisher notify.Publisher, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions:  sessions,
		users:     users,
		speakers:  speakers,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.publisher == nil {
		m.publisher = notify.Nop
	}
	return m
}

// Create schedules a new session.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*models.Session, error) {
	if err := util.ValidationFields(req.Validate()); err != nil {
		return nil, err
	}
	speakers := make([]primitive.ObjectID, 0, len(req.Speakers))
	for _, hex := range req.Speakers {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
		if err != nil {
			return nil, common.NewValidationError("speakers", "invalid speaker id")
		}
		speakers = append(speakers, id)
	}

	now := m.now()
	s := &models.Session{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Speakers:    speakers,
		Remarks:     req.Remarks,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.SessionScheduled,
		Attendance:  []models.AttendanceEntry{},
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, common.Internal("create session", err)
	}
	m.log.Info(ctx, "session created", "session_id", s.ID.Hex(), "title", s.Title)
	return s, nil
}

// Get returns the session with the given hex id, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	s, err := m.sessions.FindByID(ctx, oid)
	return s, translate(err, "find session")
}

// List returns every session in creation order.
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	list, err := m.sessions.List(ctx)
	if err != nil {
		return nil, common.Internal("list sessions", err)
	}
	return list, nil
}

// Start moves a scheduled session to in_progress. Only one session may be
// in progress at a time; a second start fails with common.ErrConflict and
// leaves its target untouched.
func (m *Manager) Start(ctx context.Context, id string) (*models.Session, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	s, err := m.sessions.Start(ctx, oid, m.now())
	if err != nil {
		return nil, translate(err, "start session")
	}
	m.announce(ctx, notify.EventSessionStarted, s)
	return s, nil
}

// End completes a session that is in progress.
func (m *Manager) End(ctx context.Context, id string) (*models.Session, error) {
	return m.transition(ctx, id, []models.SessionStatus{models.SessionInProgress}, models.SessionCompleted, notify.EventSessionEnded)
}

// Cancel abandons a session that has not finished.
func (m *Manager) Cancel(ctx context.Context, id string) (*models.Session, error) {
	return m.transition(ctx, id, []models.SessionStatus{models.SessionScheduled, models.SessionInProgress}, models.SessionCancelled, notify.EventSessionCancelled)
}

func (m *Manager) transition(ctx context.Context, id string, from []models.SessionStatus, to models.SessionStatus, event string) (*models.Session, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	s, err := m.sessions.Transition(ctx, oid, from, to, m.now())
	if err != nil {
		return nil, translate(err, "update session status")
	}
	m.announce(ctx, event, s)
	return s, nil
}

// MarkAttendance records that ref joined the session. Each attendee is
// recorded once; a repeat is common.ErrConflict. Users also get the session
// added to their attended list.
func (m *Manager) MarkAttendance(ctx context.Context, sessionID string, ref models.AttendeeRef) (*models.Session, error) {
	oid, err := util.ParseObjectID(sessionID)
	if err != nil {
		return nil, err
	}
	if err := ref.Validate(); err != nil {
		return nil, common.NewValidationError("attendee", err.Error())
	}
	if _, _, err := m.resolve(ctx, ref); err != nil {
		return nil, err
	}

	s, err := m.sessions.AddAttendance(ctx, oid, models.AttendanceEntry{Attendee: ref, JoinTime: m.now()})
	if err != nil {
		return nil, translate(err, "add attendance")
	}
	if ref.Kind == models.AttendeeUser {
		if err := m.users.AddAttendedSession(ctx, ref.ID, oid); err != nil {
			m.log.Error(ctx, "failed to link attended session", "session_id", sessionID, "user_id", ref.ID.Hex(), "error", err)
		}
	}
	return s, nil
}

// AddComment appends a comment by ref, which must name an existing user or
// speaker. Attendees may comment any number of times.
func (m *Manager) AddComment(ctx context.Context, sessionID string, ref models.AttendeeRef, text string) (*models.Session, error) {
	oid, err := util.ParseObjectID(sessionID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewValidationError("comment", "cannot be blank")
	}
	if err := ref.Validate(); err != nil {
		return nil, common.NewValidationError("attendee", err.Error())
	}
	if _, _, err := m.resolve(ctx, ref); err != nil {
		return nil, err
	}
	s, err := m.sessions.AddComment(ctx, oid, models.Comment{Attendee: ref, Body: text, Timestamp: m.now()})
	return s, translate(err, "add comment")
}

// Attendance lists who joined the session, in join order.
func (m *Manager) Attendance(ctx context.Context, sessionID string) ([]AttendeeView, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]AttendeeView, 0, len(s.Attendance))
	for _, a := range s.Attendance {
		name, role := m.displayName(ctx, a.Attendee)
		out = append(out, AttendeeView{Attendee: a.Attendee, Name: name, Role: role, JoinTime: a.JoinTime})
	}
	return out, nil
}

// Comments lists the session's comments, oldest first.
func (m *Manager) Comments(ctx context.Context, sessionID string) ([]CommentView, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, 0, len(s.Comments))
	for _, c := range s.Comments {
		name, role := m.displayName(ctx, c.Attendee)
		out = append(out, CommentView{Attendee: c.Attendee, Name: name, Role: role, Comment: c.Body, Timestamp: c.Timestamp})
	}
	return out, nil
}

// resolve loads the account behind ref.
func (m *Manager) resolve(ctx context.Context, ref models.AttendeeRef) (string, string, error) {
	switch ref.Kind {
	case models.AttendeeSpeaker:
		sp, err := m.speakers.FindByID(ctx, ref.ID)
		if err != nil {
			return "", "", translate(err, "find speaker")
		}
		return sp.FullName, models.RoleSpeaker, nil
	default:
		u, err := m.users.FindByID(ctx, ref.ID)
		if err != nil {
			return "", "", translate(err, "find user")
		}
		if u.IsAdmin {
			return u.Email, models.RoleAdmin, nil
		}
		return u.PersonalInformation.FullName.String(), models.RoleUser, nil
	}
}

// displayName tolerates accounts deleted after they attended.
func (m *Manager) displayName(ctx context.Context, ref models.AttendeeRef) (string, string) {
	name, role, err := m.resolve(ctx, ref)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			m.log.Warn(ctx, "failed to resolve attendee", "attendee_id", ref.ID.Hex(), "error", err)
		}
		return "Unknown", string(ref.Kind)
	}
	return name, role
}

func (m *Manager) announce(ctx context.Context, event string, s *models.Session) {
	m.log.Info(ctx, "session status changed", "session_id", s.ID.Hex(), "status", string(s.Status))
	m.publisher.Publish(event, map[string]any{
		"sessionId": s.ID.Hex(),
		"title":     s.Title,
		"status":    s.Status,
	})
}

// translate keeps the store's taxonomy errors and wraps everything else as
// internal.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNotFound
	case errors.Is(err, common.ErrConflict):
		return common.ErrConflict
	case errors.Is(err, common.ErrInvalidTransition):
		return common.ErrInvalidTransition
	default:
		return common.Internal(op, err)
	}
}
