package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus is the lifecycle state of a conference session.
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// AttendeeKind tags an AttendeeRef.
type AttendeeKind string

const (
	AttendeeUser    AttendeeKind = "user"
	AttendeeSpeaker AttendeeKind = "speaker"
)

var ErrInvalidAttendee = errors.New("attendee must reference exactly one user or speaker")

// AttendeeRef points at exactly one user or speaker. Build it with UserRef
// or SpeakerRef.
type AttendeeRef struct {
	Kind AttendeeKind       `bson:"kind" json:"kind"`
	ID   primitive.ObjectID `bson:"id" json:"id"`
}

func UserRef(id primitive.ObjectID) AttendeeRef {
	return AttendeeRef{Kind: AttendeeUser, ID: id}
}

func SpeakerRef(id primitive.ObjectID) AttendeeRef {
	return AttendeeRef{Kind: AttendeeSpeaker, ID: id}
}

// Validate rejects refs with an unknown kind or a zero id.
func (r AttendeeRef) Validate() error {
	if r.ID.IsZero() {
		return ErrInvalidAttendee
	}
	switch r.Kind {
	case AttendeeUser, AttendeeSpeaker:
		return nil
	default:
		return ErrInvalidAttendee
	}
}

// AttendanceEntry records that an attendee joined a session.
type AttendanceEntry struct {
	Attendee AttendeeRef `bson:"attendee" json:"attendee"`
	JoinTime time.Time   `bson:"joinTime" json:"joinTime"`
}

// Comment is a free-text remark left on a session.
type Comment struct {
	Attendee  AttendeeRef `bson:"attendee" json:"attendee"`
	Body      string      `bson:"comment" json:"comment"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

// Session is a scheduled talk or activity.
type Session struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Speakers        []primitive.ObjectID `bson:"speakers,omitempty" json:"speakers,omitempty"`
	Remarks         string               `bson:"remarks,omitempty" json:"remarks,omitempty"`
	StartTime       time.Time            `bson:"startTime" json:"startTime"`
	EndTime         time.Time            `bson:"endTime" json:"endTime"`
	Status          SessionStatus        `bson:"status" json:"status"`
	ActualStartTime *time.Time           `bson:"actualStartTime,omitempty" json:"actualStartTime,omitempty"`
	ActualEndTime   *time.Time           `bson:"actualEndTime,omitempty" json:"actualEndTime,omitempty"`
	Attendance      []AttendanceEntry    `bson:"attendance" json:"attendance"`
	Comments        []Comment            `bson:"comments" json:"comments"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasAttendee reports whether ref already has an attendance entry.
func (s *Session) HasAttendee(ref AttendeeRef) bool {
	for _, a := range s.Attendance {
		if a.Attendee == ref {
			return true
		}
	}
	return false
}
