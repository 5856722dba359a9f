package database

import (
	"context"
	"fmt"
	"time"

	"confhub/internal/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection           = "users"
	SpeakersCollection        = "speakers"
	SessionsCollection        = "sessions"
	LoginActivitiesCollection = "loginactivities"
)

// pingTimeout bounds the connection check done by Connect.
const pingTimeout = 5 * time.Second

// Connect establishes a connection to MongoDB and verifies it with a ping.
func Connect(ctx context.Context, uri string, log logging.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info(ctx, "connected to MongoDB")
	return client, nil
}

// IndexModels returns the indexes each collection needs, keyed by collection name.
//
// The partial unique index on sessions admits at most one document with
// status "in_progress", which makes starting a session a single atomic write.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "personalInformation.fullName.firstName", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "personalInformation.emailAddress", Value: 1}}},
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().
					SetName("admin_email").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "isAdmin", Value: true}}),
			},
		},
		SpeakersCollection: {
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().
					SetName("speaker_email").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "email", Value: bson.D{{Key: "$type", Value: "string"}}}}),
			},
		},
		SessionsCollection: {
			{
				Keys: bson.D{{Key: "status", Value: 1}},
				Options: options.Index().
					SetName("one_in_progress").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "in_progress"}}),
			},
		},
		LoginActivitiesCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
}

// EnsureIndexes creates the indexes returned by IndexModels. Creating an
// existing index is a no-op on the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range IndexModels() {
		ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := db.Collection(coll).Indexes().CreateMany(ctxIdx, models)
		cancel()
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
