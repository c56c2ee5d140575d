package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/databases/mocks"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

func TestNewUserDatabase(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	userDB := databases.NewUserDatabase(db)

	assert.NotEmpty(t, userDB)
}

func TestUserDatabase_FindByID(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var srHelperErr databases.SingleResultHelper
	var srHelperCorrect databases.SingleResultHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	srHelperErr = &mocks.SingleResultHelper{}
	srHelperCorrect = &mocks.SingleResultHelper{}

	missing := primitive.NewObjectID()
	found := primitive.NewObjectID()

	srHelperErr.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(mongo.ErrNoDocuments)

	srHelperCorrect.(*mocks.SingleResultHelper).
		On("Decode", mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.Account)
		arg.ID = found
		arg.Name = "mocked-user"
	})

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": missing}).
		Return(srHelperErr)

	collectionHelper.(*mocks.CollectionHelper).
		On("FindOne", context.Background(), bson.M{"_id": found}).
		Return(srHelperCorrect)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	user, err := userDba.FindByID(context.Background(), missing)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrNotFound)

	user, err = userDba.FindByID(context.Background(), found)

	assert.NoError(t, err)
	assert.Equal(t, &models.Account{ID: found, Name: "mocked-user"}, user)
}

func TestUserDatabase_FindByEmailNormalizes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Account).Email = "amy@example.com"
	})
	collectionHelper.On("FindOne", context.Background(), bson.M{"email": "amy@example.com"}).Return(srHelper)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	user, err := databases.NewUserDatabase(dbHelper).FindByEmail(context.Background(), "  Amy@Example.com ")

	assert.NoError(t, err)
	assert.Equal(t, "amy@example.com", user.Email)
}

func TestUserDatabase_FindByEmailOtherError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	srHelper.On("Decode", mock.Anything).Return(errors.New("mocked-error"))
	collectionHelper.On("FindOne", context.Background(), mock.Anything).Return(srHelper)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	_, err := databases.NewUserDatabase(dbHelper).FindByEmail(context.Background(), "a@b.c")

	assert.EqualError(t, err, "failed to find user: mocked-error")
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestUserDatabase_Create(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	insertResult := &mocks.InsertOneResultHelper{}

	id := primitive.NewObjectID()
	insertResult.On("Decode").Return(id)
	collectionHelper.On("InsertOne", context.Background(), mock.MatchedBy(func(a models.Account) bool {
		return a.Email == "new@example.com" && a.Role == models.RoleUser && a.Points == 0 && !a.CreatedAt.IsZero()
	})).Return(insertResult, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	got, err := databases.NewUserDatabase(dbHelper).Create(context.Background(), models.Account{
		Name:   "New",
		Email:  "New@Example.com",
		Points: -3,
	})

	assert.NoError(t, err)
	assert.Equal(t, id, got)
	collectionHelper.AssertExpectations(t)
}

func TestUserDatabase_CreateDuplicateEmail(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	collectionHelper.On("InsertOne", context.Background(), mock.Anything).Return(nil, dup)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	_, err := databases.NewUserDatabase(dbHelper).Create(context.Background(), models.Account{Email: "a@b.c"})

	var ve *models.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
}

func TestUserDatabase_IncrementPoints(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}
	srMissing := &mocks.SingleResultHelper{}

	id := primitive.NewObjectID()
	missing := primitive.NewObjectID()

	srHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(0)
		assert.NoError(t, bsonRoundTrip(bson.M{"points": 15}, out))
	})
	srMissing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)

	collectionHelper.On("FindOneAndUpdate", context.Background(), bson.M{"_id": id}, mock.AnythingOfType("mongo.Pipeline"), mock.Anything).Return(srHelper)
	collectionHelper.On("FindOneAndUpdate", context.Background(), bson.M{"_id": missing}, mock.Anything, mock.Anything).Return(srMissing)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	balance, err := userDba.IncrementPoints(context.Background(), id, 10)
	assert.NoError(t, err)
	assert.Equal(t, 15, balance)

	_, err = userDba.IncrementPoints(context.Background(), missing, -5)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserDatabase_UpdatePasswordMissing(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("UpdateOne", context.Background(), mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	err := databases.NewUserDatabase(dbHelper).UpdatePassword(context.Background(), primitive.NewObjectID(), "hash")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserDatabase_FindByIDsSkipsQueryWhenEmpty(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}

	got, err := databases.NewUserDatabase(dbHelper).FindByIDs(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, got)
	dbHelper.AssertNotCalled(t, "Collection", mock.Anything)
}

func TestUserDatabase_TopByPoints(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	first := primitive.NewObjectID()
	cursor.On("All", context.Background(), mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(1).(*[]models.AccountSummary)
		*out = []models.AccountSummary{{ID: first, Name: "Top", Points: 40}}
	})
	collectionHelper.On("Find", context.Background(), bson.M{"role": models.RoleUser}, mock.Anything).Return(cursor, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	top, err := databases.NewUserDatabase(dbHelper).TopByPoints(context.Background(), 10)

	assert.NoError(t, err)
	assert.Equal(t, []models.AccountSummary{{ID: first, Name: "Top", Points: 40}}, top)
}

func bsonRoundTrip(in interface{}, out interface{}) error {
	raw, err := bson.Marshal(in)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}
