package databases

// go generate: mockery --name AnalyticsDatabase

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// AnalyticsDatabase contains the dashboard aggregations over the reports
// collection
type AnalyticsDatabase interface {
	DailyCounts(ctx context.Context, since time.Time) ([]models.DailyCount, error)
	BreedingDistribution(ctx context.Context) ([]models.DistributionSlice, error)
	AreaStats(ctx context.Context, limit int64) ([]models.AreaStats, error)
}

type analyticsDatabase struct {
	db DatabaseHelper
}

// NewAnalyticsDatabase initializes a new instance of analytics database with the provided db connection
func NewAnalyticsDatabase(db DatabaseHelper) AnalyticsDatabase {
	return &analyticsDatabase{
		db: db,
	}
}

// DailyCounts groups reports created since the given time by UTC day
func (a *analyticsDatabase) DailyCounts(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$date"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	counts := []models.DailyCount{}
	if err := a.aggregate(ctx, pipeline, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (a *analyticsDatabase) BreedingDistribution(ctx context.Context) ([]models.DistributionSlice, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$breedingType",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	slices := []models.DistributionSlice{}
	if err := a.aggregate(ctx, pipeline, &slices); err != nil {
		return nil, err
	}
	return slices, nil
}

// AreaStats groups reports by location and returns the busiest areas
func (a *analyticsDatabase) AreaStats(ctx context.Context, limit int64) ([]models.AreaStats, error) {
	isValid := bson.M{"$or": bson.A{
		bson.M{"$eq": bson.A{"$status", models.StatusValid}},
		bson.M{"$eq": bson.A{"$aiVerdict", string(models.StatusValid)}},
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":               "$location",
			"reportCount":       bson.M{"$sum": 1},
			"highSeverityCount": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$severity", models.SeverityHigh}}, 1, 0}}},
			"validCount":        bson.M{"$sum": bson.M{"$cond": bson.A{isValid, 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.M{"reportCount": -1}}},
		{{Key: "$limit", Value: limit}},
	}
	stats := []models.AreaStats{}
	if err := a.aggregate(ctx, pipeline, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *analyticsDatabase) aggregate(ctx context.Context, pipeline mongo.Pipeline, results interface{}) error {
	cursor, err := a.db.Collection(reportName).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate reports: %w", err)
	}
	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("failed to decode aggregation: %w", err)
	}
	return nil
}
