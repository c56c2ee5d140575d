package databases

// go generate: mockery --name ReportDatabase

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

const reportName = "reports"

// ReportDatabase contains the methods to use with the report database
type ReportDatabase interface {
	Create(ctx context.Context, report models.Report) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Report, error)
	FindAll(ctx context.Context) ([]models.Report, error)
	FindPage(ctx context.Context, limit, page int) ([]models.Report, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportState) error
	Delete(ctx context.Context, id primitive.ObjectID, expected models.ReportState) error
	Count(ctx context.Context, filter interface{}) (int64, error)
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

// Create inserts the report with the status and points the caller chose. A
// report must reference an image.
func (c *reportDatabase) Create(ctx context.Context, report models.Report) (primitive.ObjectID, error) {
	if strings.TrimSpace(report.ImagePath) == "" {
		return primitive.NilObjectID, models.NewValidationError("image", "image upload is required")
	}
	if report.UserID.IsZero() {
		return primitive.NilObjectID, models.NewValidationError("userId", "report owner is required")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt

	res, err := c.db.Collection(reportName).InsertOne(ctx, report)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert report: %w", err)
	}
	id, ok := res.Decode().(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.Decode())
	}
	return id, nil
}

func (c *reportDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	report := &models.Report{}
	err := c.db.Collection(reportName).FindOne(ctx, bson.M{"_id": id}).Decode(report)
	if err != nil {
		return nil, notFound("report", err)
	}
	return report, nil
}

func (c *reportDatabase) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Report, error) {
	return c.find(ctx, bson.M{"userId": ownerID}, options.Find().SetSort(newestFirst))
}

// FindAll re-queries on every call, newest first
func (c *reportDatabase) FindAll(ctx context.Context) ([]models.Report, error) {
	return c.find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

func (c *reportDatabase) FindPage(ctx context.Context, limit, page int) ([]models.Report, error) {
	if limit <= 0 {
		return c.FindAll(ctx)
	}
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	opts.SetSort(newestFirst)
	return c.find(ctx, bson.M{}, opts)
}

func (c *reportDatabase) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Report, error) {
	cursor, err := c.db.Collection(reportName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, nil
}

// stateFilter matches the report only while it is still in state
func stateFilter(id primitive.ObjectID, state models.ReportState) bson.M {
	return bson.M{"_id": id, "status": state.Status, "pointsAwarded": state.PointsAwarded}
}

// UpdateStatus moves the report from one state to another. It returns
// models.ErrRejectedTransition when the stored report is no longer in from,
// so two writers planning from the same read cannot both land.
func (c *reportDatabase) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportState) error {
	res, err := c.db.Collection(reportName).UpdateOne(ctx,
		stateFilter(id, from),
		bson.M{"$set": bson.M{
			"status":        to.Status,
			"pointsAwarded": to.PointsAwarded,
			"updatedAt":     time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("report %s is no longer %s: %w", id.Hex(), from.Status, models.ErrRejectedTransition)
	}
	return nil
}

// Delete removes the report while it is still in expected, otherwise it
// returns models.ErrRejectedTransition
func (c *reportDatabase) Delete(ctx context.Context, id primitive.ObjectID, expected models.ReportState) error {
	res, err := c.db.Collection(reportName).DeleteOne(ctx, stateFilter(id, expected))
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("report %s is no longer %s: %w", id.Hex(), expected.Status, models.ErrRejectedTransition)
	}
	return nil
}

func (c *reportDatabase) Count(ctx context.Context, filter interface{}) (int64, error) {
	return c.db.Collection(reportName).CountDocuments(ctx, filter)
}

// EnsureReportIndexes creates the indexes the feed and dashboard queries use
func EnsureReportIndexes(ctx context.Context, db DatabaseHelper) error {
	return db.Collection(reportName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.lat", Value: 1}, {Key: "location.lng", Value: 1}, {Key: "breedingType", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
}
