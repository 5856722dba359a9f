// Package store declares the persistence contracts used by the services.
// Implementations return common.ErrNotFound for missing records and
// common.ErrConflict for uniqueness violations.
package store

import (
	"context"
	"time"

	"confhub/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFilter narrows List results. Zero value lists attendees only.
type UserFilter struct {
	Institution   string
	IncludeAdmins bool
}

// Users persists admin and attendee accounts.
type Users interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByFirstName returns every attendee with that first name in
	// ascending id order.
	FindByFirstName(ctx context.Context, firstName string) ([]*models.User, error)
	// FindByEmail returns every attendee registered with that email in
	// ascending id order.
	FindByEmail(ctx context.Context, email string) ([]*models.User, error)
	FindAdminByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter) ([]*models.User, error)
	Save(ctx context.Context, u *models.User) error
	AddAttendedSession(ctx context.Context, userID, sessionID primitive.ObjectID) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Speakers persists the speaker directory.
type Speakers interface {
	Create(ctx context.Context, s *models.Speaker) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Speaker, error)
	FindByEmail(ctx context.Context, email string) (*models.Speaker, error)
	List(ctx context.Context) ([]*models.Speaker, error)
	Save(ctx context.Context, s *models.Speaker) error
	DeleteByID(ctx context.Context, id primitive.ObjectID) (*models.Speaker, error)
}

// Sessions persists conference sessions. Every mutating call is a single
// conditional update so concurrent callers cannot break the invariants.
type Sessions interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error)
	List(ctx context.Context) ([]*models.Session, error)
	// Start moves a scheduled session to in_progress. It returns
	// common.ErrConflict when any session is already running, and
	// common.ErrInvalidTransition when the target is not scheduled.
	Start(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Session, error)
	// Transition moves a session whose status is one of from to the target
	// status; common.ErrInvalidTransition otherwise.
	Transition(ctx context.Context, id primitive.ObjectID, from []models.SessionStatus, to models.SessionStatus, at time.Time) (*models.Session, error)
	// AddAttendance appends entry unless its attendee is already present,
	// in which case it returns common.ErrConflict.
	AddAttendance(ctx context.Context, id primitive.ObjectID, entry models.AttendanceEntry) (*models.Session, error)
	AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Session, error)
}

// Activities is the login audit log.
type Activities interface {
	Append(ctx context.Context, a *models.LoginActivity) error
	// List returns entries newest first; limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*models.LoginActivity, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

// Manager bundles the stores for one backend.
type Manager interface {
	Users() Users
	Speakers() Speakers
	Sessions() Sessions
	Activities() Activities
	Close(ctx context.Context) error
}
