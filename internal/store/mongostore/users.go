package mongostore

import (
	"context"

	"confhub/internal/common"
	"confhub/internal/models"
	"confhub/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type users struct{ col *mongo.Collection }

var byIDAsc = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func (r *users) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.col.InsertOne(ctx, u)
	return translate(err, "insert user")
}

func (r *users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, "find user")
	}
	return &u, nil
}

func (r *users) findMany(ctx context.Context, filter bson.M) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := r.col.Find(ctx, filter, byIDAsc)
	if err != nil {
		return nil, translate(err, "find users")
	}
	var out []*models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err, "decode users")
	}
	return out, nil
}

func (r *users) FindByFirstName(ctx context.Context, firstName string) ([]*models.User, error) {
	return r.findMany(ctx, bson.M{
		"isAdmin":                                bson.M{"$ne": true},
		"personalInformation.fullName.firstName": firstName,
	})
}

func (r *users) FindByEmail(ctx context.Context, email string) ([]*models.User, error) {
	return r.findMany(ctx, bson.M{
		"isAdmin":                          bson.M{"$ne": true},
		"personalInformation.emailAddress": normalizeEmail(email),
	})
}

func (r *users) FindAdminByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var u models.User
	err := r.col.FindOne(ctx, bson.M{"isAdmin": true, "email": normalizeEmail(email)}).Decode(&u)
	if err != nil {
		return nil, translate(err, "find admin")
	}
	return &u, nil
}

func (r *users) List(ctx context.Context, filter store.UserFilter) ([]*models.User, error) {
	q := bson.M{}
	if !filter.IncludeAdmins {
		q["isAdmin"] = bson.M{"$ne": true}
	}
	if filter.Institution != "" {
		q["personalInformation.nameOfInstitution"] = filter.Institution
	}
	return r.findMany(ctx, q)
}

func (r *users) Save(ctx context.Context, u *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err, "save user")
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *users) AddAttendedSession(ctx context.Context, userID, sessionID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"sessionsAttended": sessionID}},
	)
	if err != nil {
		return translate(err, "record attended session")
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *users) DeleteByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var u models.User
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, "delete user")
	}
	return &u, nil
}
