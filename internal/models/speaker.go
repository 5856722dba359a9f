package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Speaker is an entry in the speaker directory.
type Speaker struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"fullName" json:"fullName"`
	Institution  string             `bson:"institution" json:"institution"`
	Designation  string             `bson:"designation" json:"designation"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string             `bson:"password,omitempty" json:"-"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	Biography    string             `bson:"biography" json:"biography"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
