package mongostore

import (
	"context"

	"confhub/internal/common"
	"confhub/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type speakers struct{ col *mongo.Collection }

// Create relies on the speaker_email index for duplicate detection.
func (r *speakers) Create(ctx context.Context, s *models.Speaker) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.InsertOne(ctx, s)
	return translate(err, "insert speaker")
}

func (r *speakers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var s models.Speaker
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, translate(err, "find speaker")
	}
	return &s, nil
}

func (r *speakers) FindByEmail(ctx context.Context, email string) (*models.Speaker, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, common.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var s models.Speaker
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&s); err != nil {
		return nil, translate(err, "find speaker")
	}
	return &s, nil
}

func (r *speakers) List(ctx context.Context) ([]*models.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := r.col.Find(ctx, bson.M{}, byIDAsc)
	if err != nil {
		return nil, translate(err, "list speakers")
	}
	out := []*models.Speaker{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err, "decode speakers")
	}
	return out, nil
}

func (r *speakers) Save(ctx context.Context, s *models.Speaker) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return translate(err, "save speaker")
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *speakers) DeleteByID(ctx context.Context, id primitive.ObjectID) (*models.Speaker, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var s models.Speaker
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, translate(err, "delete speaker")
	}
	return &s, nil
}
