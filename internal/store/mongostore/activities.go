package mongostore

import (
	"context"

	"confhub/internal/common"
	"confhub/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activities struct{ col *mongo.Collection }

func (r *activities) Append(ctx context.Context, a *models.LoginActivity) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.InsertOne(ctx, a)
	return translate(err, "insert login activity")
}

func (r *activities) List(ctx context.Context, limit int) ([]*models.LoginActivity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate(err, "list login activities")
	}
	out := []*models.LoginActivity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err, "decode login activities")
	}
	return out, nil
}

func (r *activities) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete login activity")
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}
