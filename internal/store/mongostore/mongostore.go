// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"confhub/internal/common"
	"confhub/internal/database"
	"confhub/internal/store"

	"go.mongodb.org/mongo-driver/mongo"
)

// opTimeout bounds every single driver call.
const opTimeout = 5 * time.Second

// Manager holds the collections of one database.
type Manager struct {
	client     *mongo.Client
	users      *mongo.Collection
	speakers   *mongo.Collection
	sessions   *mongo.Collection
	activities *mongo.Collection
}

var _ store.Manager = (*Manager)(nil)

// New wraps db. client may be nil when the caller owns the connection.
func New(client *mongo.Client, db *mongo.Database) *Manager {
	return &Manager{
		client:     client,
		users:      db.Collection(database.UsersCollection),
		speakers:   db.Collection(database.SpeakersCollection),
		sessions:   db.Collection(database.SessionsCollection),
		activities: db.Collection(database.LoginActivitiesCollection),
	}
}

func (m *Manager) Users() store.Users           { return &users{m.users} }
func (m *Manager) Speakers() store.Speakers     { return &speakers{m.speakers} }
func (m *Manager) Sessions() store.Sessions     { return &sessions{m.sessions} }
func (m *Manager) Activities() store.Activities { return &activities{m.activities} }

// Close disconnects the client if the manager owns one.
func (m *Manager) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// translate maps driver errors onto the common taxonomy.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, common.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
