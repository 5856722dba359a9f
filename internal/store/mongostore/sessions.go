package mongostore

import (
	"context"
	"errors"
	"time"

	"confhub/internal/common"
	"confhub/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessions struct{ col *mongo.Collection }

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (r *sessions) Create(ctx context.Context, s *models.Session) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	// $push needs arrays, not nulls.
	if s.Attendance == nil {
		s.Attendance = []models.AttendanceEntry{}
	}
	if s.Comments == nil {
		s.Comments = []models.Comment{}
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.InsertOne(ctx, s)
	return translate(err, "insert session")
}

func (r *sessions) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var s models.Session
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, translate(err, "find session")
	}
	return &s, nil
}

func (r *sessions) List(ctx context.Context) ([]*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := r.col.Find(ctx, bson.M{}, byIDAsc)
	if err != nil {
		return nil, translate(err, "list sessions")
	}
	out := []*models.Session{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err, "decode sessions")
	}
	return out, nil
}

// Start checks for a running session first so the common case reports
// Conflict without touching the target. The update itself is guarded by the
// one_in_progress partial unique index, so a racing start fails with a
// duplicate key error.
func (r *sessions) Start(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.col.FindOne(ctx, bson.M{"status": models.SessionInProgress},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case err == nil:
		return nil, common.ErrConflict
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, translate(err, "check running session")
	}

	var s models.Session
	err = r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.SessionScheduled},
		bson.M{"$set": bson.M{
			"status":          models.SessionInProgress,
			"actualStartTime": at,
			"updatedAt":       at,
		}},
		returnAfter,
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrInvalid(ctx, id)
	}
	if err != nil {
		return nil, translate(err, "start session")
	}
	return &s, nil
}

func (r *sessions) Transition(ctx context.Context, id primitive.ObjectID, from []models.SessionStatus, to models.SessionStatus, at time.Time) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"status": to, "updatedAt": at}
	if to == models.SessionCompleted {
		set["actualEndTime"] = at
	}
	var s models.Session
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
		returnAfter,
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missOrInvalid(ctx, id)
	}
	if err != nil {
		return nil, translate(err, "transition session")
	}
	return &s, nil
}

// missOrInvalid explains why a conditional update matched nothing.
func (r *sessions) missOrInvalid(ctx context.Context, id primitive.ObjectID) error {
	err := r.col.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return common.ErrInvalidTransition
	}
	return translate(err, "find session")
}

func (r *sessions) AddAttendance(ctx context.Context, id primitive.ObjectID, entry models.AttendanceEntry) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var s models.Session
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{
			"_id": id,
			"attendance": bson.M{"$not": bson.M{"$elemMatch": bson.M{
				"attendee.kind": entry.Attendee.Kind,
				"attendee.id":   entry.Attendee.ID,
			}}},
		},
		bson.M{"$push": bson.M{"attendance": entry}, "$set": bson.M{"updatedAt": entry.JoinTime}},
		returnAfter,
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, common.ErrConflict
	}
	if err != nil {
		return nil, translate(err, "add attendance")
	}
	return &s, nil
}

func (r *sessions) AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var s models.Session
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"comments": c}, "$set": bson.M{"updatedAt": c.Timestamp}},
		returnAfter,
	).Decode(&s)
	if err != nil {
		return nil, translate(err, "add comment")
	}
	return &s, nil
}
