package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	Create(ctx context.Context, account models.Account) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AccountSummary, error)
	List(ctx context.Context) ([]models.Account, error)
	TopByPoints(ctx context.Context, limit int64) ([]models.AccountSummary, error)
	IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	Count(ctx context.Context, filter interface{}) (int64, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

// Create inserts a new account. Emails are stored lower case and are unique.
func (u *userDatabase) Create(ctx context.Context, account models.Account) (primitive.ObjectID, error) {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	if account.Points < 0 {
		account.Points = 0
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	res, err := u.db.Collection(userName).InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, models.NewValidationError("email", "user already exists")
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert user: %w", err)
	}
	id, ok := res.Decode().(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.Decode())
	}
	return id, nil
}

func (u *userDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	account := &models.Account{}
	err := u.db.Collection(userName).FindOne(ctx, bson.M{"_id": id}).Decode(account)
	if err != nil {
		return nil, notFound("user", err)
	}
	return account, nil
}

func (u *userDatabase) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	account := &models.Account{}
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	err := u.db.Collection(userName).FindOne(ctx, filter).Decode(account)
	if err != nil {
		return nil, notFound("user", err)
	}
	return account, nil
}

// FindByIDs returns the public summary of every account found, keyed by id
func (u *userDatabase) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AccountSummary, error) {
	out := make(map[primitive.ObjectID]models.AccountSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := u.db.Collection(userName).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	var summaries []models.AccountSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}

func (u *userDatabase) List(ctx context.Context) ([]models.Account, error) {
	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := u.db.Collection(userName).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	accounts := []models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return accounts, nil
}

// TopByPoints returns reporters ordered by points, highest first
func (u *userDatabase) TopByPoints(ctx context.Context, limit int64) ([]models.AccountSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1, "email": 1, "points": 1}).
		SetSort(bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	cursor, err := u.db.Collection(userName).Find(ctx, bson.M{"role": models.RoleUser}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find leaderboard: %w", err)
	}
	top := []models.AccountSummary{}
	if err := cursor.All(ctx, &top); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return top, nil
}

// IncrementPoints adds delta to the account's points in one server side
// update and clamps the result at zero. It returns the new balance.
func (u *userDatabase) IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"points": bson.M{"$max": bson.A{
				0,
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$points", 0}}, delta}},
			}},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"points": 1})

	var result struct {
		Points int `bson:"points"`
	}
	err := u.db.Collection(userName).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&result)
	if err != nil {
		return 0, notFound("user", err)
	}
	return result.Points, nil
}

func (u *userDatabase) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := u.db.Collection(userName).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return nil
}

func (u *userDatabase) Count(ctx context.Context, filter interface{}) (int64, error) {
	return u.db.Collection(userName).CountDocuments(ctx, filter)
}

// EnsureUserIndexes creates the unique email index and the leaderboard index
func EnsureUserIndexes(ctx context.Context, db DatabaseHelper) error {
	return db.Collection(userName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "points", Value: -1}}},
	})
}
