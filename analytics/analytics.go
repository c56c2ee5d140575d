// Package analytics builds the admin dashboard figures.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Risk thresholds
const (
	HighRiskScore   = 15
	MediumRiskScore = 8

	// TopAreas is how many areas the risk table shows
	TopAreas = 10
)

// Store is the aggregation source
type Store interface {
	DailyCounts(ctx context.Context, since time.Time) ([]models.DailyCount, error)
	BreedingDistribution(ctx context.Context) ([]models.DistributionSlice, error)
	AreaStats(ctx context.Context, limit int64) ([]models.AreaStats, error)
}

// Counter counts documents matching a filter
type Counter interface {
	Count(ctx context.Context, filter interface{}) (int64, error)
}

// Service computes dashboard figures
type Service struct {
	store   Store
	reports Counter
	users   Counter
	now     func() time.Time
}

// NewService returns a Service
func NewService(store Store, reports, users Counter) *Service {
	return &Service{store: store, reports: reports, users: users, now: time.Now}
}

// Score is reportCount*2 + highSeverityCount*3 + validCount*2
func Score(a models.AreaStats) int {
	return a.ReportCount*2 + a.HighSeverityCount*3 + a.ValidCount*2
}

// Level maps a score onto Low, Medium or High
func Level(score int) models.Severity {
	switch {
	case score >= HighRiskScore:
		return models.SeverityHigh
	case score >= MediumRiskScore:
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// AreaRisk scores the busiest areas
func (s *Service) AreaRisk(ctx context.Context) ([]models.AreaRisk, error) {
	stats, err := s.store.AreaStats(ctx, TopAreas)
	if err != nil {
		return nil, err
	}
	out := make([]models.AreaRisk, 0, len(stats))
	for _, a := range stats {
		score := Score(a)
		out = append(out, models.AreaRisk{
			Location:    a.Location,
			ReportCount: a.ReportCount,
			RiskLevel:   Level(score),
			RiskScore:   score,
		})
	}
	return out, nil
}

// Weekly returns per day report counts for the last seven days
func (s *Service) Weekly(ctx context.Context) ([]models.DailyCount, error) {
	return s.store.DailyCounts(ctx, s.now().UTC().AddDate(0, 0, -7))
}

// Distribution returns report counts per breeding type
func (s *Service) Distribution(ctx context.Context) ([]models.DistributionSlice, error) {
	return s.store.BreedingDistribution(ctx)
}

// Overview returns the dashboard totals
func (s *Service) Overview(ctx context.Context) (*models.Overview, error) {
	var o models.Overview
	counts := []struct {
		dst    *int64
		c      Counter
		filter interface{}
	}{
		{&o.TotalReports, s.reports, map[string]interface{}{}},
		{&o.TotalUsers, s.users, map[string]interface{}{"role": models.RoleUser}},
		{&o.PendingReports, s.reports, map[string]interface{}{"status": models.StatusPending}},
		{&o.ValidReports, s.reports, map[string]interface{}{"status": models.StatusValid}},
		{&o.InvalidReports, s.reports, map[string]interface{}{"status": models.StatusInvalid}},
		{&o.InProgressReports, s.reports, map[string]interface{}{"status": models.StatusInProgress}},
		{&o.ClearedReports, s.reports, map[string]interface{}{"status": models.StatusCleared}},
	}
	for _, c := range counts {
		n, err := c.c.Count(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
		*c.dst = n
	}
	return &o, nil
}
