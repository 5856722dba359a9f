package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names used in tokens and audit entries.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleSpeaker = "speaker"
)

// LoginActivity is an append-only audit record of one authentication attempt.
type LoginActivity struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string             `bson:"email" json:"email"`
	Role              string             `bson:"role" json:"role"`
	Success           bool               `bson:"success" json:"success"`
	Message           string             `bson:"message,omitempty" json:"message,omitempty"`
	RemainingAttempts *int               `bson:"remainingAttempts,omitempty" json:"remainingAttempts,omitempty"`
	Method            string             `bson:"method,omitempty" json:"method,omitempty"`
	Endpoint          string             `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	RequestDetails    string             `bson:"requestDetails,omitempty" json:"requestDetails,omitempty"`
	Timestamp         time.Time          `bson:"timestamp" json:"timestamp"`
}
