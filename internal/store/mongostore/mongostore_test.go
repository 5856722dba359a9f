package mongostore

import (
	"context"
	"testing"
	"time"

	"confhub/internal/common"
	"confhub/internal/models"
	"confhub/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func emptyCursor(ns string) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
}

func duplicateKey() bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{
		Code:    11000,
		Name:    "DuplicateKey",
		Message: "E11000 duplicate key error collection: confhub.sessions index: one_in_progress",
	})
}

func TestUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("FindByFirstName decodes every candidate", func(mt *mtest.T) {
		a := &models.User{ID: primitive.NewObjectID()}
		a.PersonalInformation.FullName.FirstName = "Alice"
		a.PersonalInformation.Institution = "NRB"
		b := &models.User{ID: primitive.NewObjectID()}
		b.PersonalInformation.FullName.FirstName = "Alice"
		b.PersonalInformation.Institution = "ICIMOD"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "confhub.users", mtest.FirstBatch, toDoc(mt.T, a), toDoc(mt.T, b)))

		got, err := New(nil, mt.DB).Users().FindByFirstName(context.Background(), "Alice")
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, a.ID, got[0].ID)
		assert.Equal(mt, "ICIMOD", got[1].PersonalInformation.Institution)
	})

	mt.Run("FindByID missing is not found", func(mt *mtest.T) {
		mt.AddMockResponses(emptyCursor("confhub.users"))
		_, err := New(nil, mt.DB).Users().FindByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, common.ErrNotFound)
	})

	mt.Run("Create duplicate admin email is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Code: 11000, Message: "duplicate key"}))
		err := New(nil, mt.DB).Users().Create(context.Background(), &models.User{IsAdmin: true, Email: "a@b.c"})
		assert.ErrorIs(mt, err, common.ErrConflict)
	})

	mt.Run("Save unmatched is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := New(nil, mt.DB).Users().Save(context.Background(), &models.User{ID: primitive.NewObjectID()})
		assert.ErrorIs(mt, err, common.ErrNotFound)
	})

	mt.Run("List with filter", func(mt *mtest.T) {
		mt.AddMockResponses(emptyCursor("confhub.users"))
		got, err := New(nil, mt.DB).Users().List(context.Background(), store.UserFilter{Institution: "NRB"})
		require.NoError(mt, err)
		assert.Empty(mt, got)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		filter := started.Command.Lookup("filter").Document()
		assert.Equal(mt, "NRB", filter.Lookup("personalInformation.nameOfInstitution").StringValue())
	})
}

func TestSessions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)

	mt.Run("Start conflicts when a session is running", func(mt *mtest.T) {
		running := bson.D{{Key: "_id", Value: primitive.NewObjectID()}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "confhub.sessions", mtest.FirstBatch, running))

		_, err := New(nil, mt.DB).Sessions().Start(context.Background(), primitive.NewObjectID(), now)
		assert.ErrorIs(mt, err, common.ErrConflict)
		assert.Len(mt, mt.GetAllStartedEvents(), 1, "target must not be updated")
	})

	mt.Run("Start losing the race is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(emptyCursor("confhub.sessions"), duplicateKey())

		_, err := New(nil, mt.DB).Sessions().Start(context.Background(), primitive.NewObjectID(), now)
		assert.ErrorIs(mt, err, common.ErrConflict)
	})

	mt.Run("Start returns the updated session", func(mt *mtest.T) {
		s := &models.Session{
			ID:              primitive.NewObjectID(),
			Title:           "Keynote",
			Status:          models.SessionInProgress,
			ActualStartTime: &now,
		}
		mt.AddMockResponses(emptyCursor("confhub.sessions"), mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, s)}))

		got, err := New(nil, mt.DB).Sessions().Start(context.Background(), s.ID, now)
		require.NoError(mt, err)
		assert.Equal(mt, models.SessionInProgress, got.Status)
		require.NotNil(mt, got.ActualStartTime)
		assert.True(mt, now.Equal(*got.ActualStartTime))
	})

	mt.Run("Start on a non-scheduled session is an invalid transition", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			emptyCursor("confhub.sessions"),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "confhub.sessions", mtest.FirstBatch, bson.D{{Key: "_id", Value: id}}),
		)

		_, err := New(nil, mt.DB).Sessions().Start(context.Background(), id, now)
		assert.ErrorIs(mt, err, common.ErrInvalidTransition)
	})

	mt.Run("Transition on a missing session is not found", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			emptyCursor("confhub.sessions"),
		)

		_, err := New(nil, mt.DB).Sessions().Transition(context.Background(), primitive.NewObjectID(),
			[]models.SessionStatus{models.SessionInProgress}, models.SessionCompleted, now)
		assert.ErrorIs(mt, err, common.ErrNotFound)
	})

	mt.Run("AddAttendance duplicate is a conflict", func(mt *mtest.T) {
		s := &models.Session{ID: primitive.NewObjectID(), Status: models.SessionInProgress}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "confhub.sessions", mtest.FirstBatch, toDoc(mt.T, s)),
		)

		entry := models.AttendanceEntry{Attendee: models.UserRef(primitive.NewObjectID()), JoinTime: now}
		_, err := New(nil, mt.DB).Sessions().AddAttendance(context.Background(), s.ID, entry)
		assert.ErrorIs(mt, err, common.ErrConflict)
	})

	mt.Run("Create fills empty arrays", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		s := &models.Session{Title: "Panel", Status: models.SessionScheduled}
		require.NoError(mt, New(nil, mt.DB).Sessions().Create(context.Background(), s))
		assert.False(mt, s.ID.IsZero())
		assert.NotNil(mt, s.Attendance)
		assert.NotNil(mt, s.Comments)
	})
}

func TestActivities(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("DeleteByID missing is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := New(nil, mt.DB).Activities().DeleteByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, common.ErrNotFound)
	})

	mt.Run("List applies the limit", func(mt *mtest.T) {
		a := &models.LoginActivity{ID: primitive.NewObjectID(), Email: "root@example.com", Role: models.RoleAdmin}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "confhub.loginactivities", mtest.FirstBatch, toDoc(mt.T, a)))

		got, err := New(nil, mt.DB).Activities().List(context.Background(), 10)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "root@example.com", got[0].Email)
		assert.EqualValues(mt, 10, mt.GetStartedEvent().Command.Lookup("limit").AsInt64())
	})
}
