package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

type fakeStore struct {
	since time.Time
	limit int64
	areas []models.AreaStats
}

func (f *fakeStore) DailyCounts(_ context.Context, since time.Time) ([]models.DailyCount, error) {
	f.since = since
	return []models.DailyCount{{Date: "2024-05-01", Count: 2}}, nil
}

func (f *fakeStore) BreedingDistribution(context.Context) ([]models.DistributionSlice, error) {
	return []models.DistributionSlice{{Name: "Trash", Value: 4}}, nil
}

func (f *fakeStore) AreaStats(_ context.Context, limit int64) ([]models.AreaStats, error) {
	f.limit = limit
	return f.areas, nil
}

type fakeCounter map[models.Status]int64

func (f fakeCounter) Count(_ context.Context, filter interface{}) (int64, error) {
	m := filter.(map[string]interface{})
	if s, ok := m["status"]; ok {
		return f[s.(models.Status)], nil
	}
	var total int64
	for _, n := range f {
		total += n
	}
	return total, nil
}

type brokenCounter struct{}

func (brokenCounter) Count(context.Context, interface{}) (int64, error) {
	return 0, errors.New("timeout")
}

func TestLevel(t *testing.T) {
	assert.Equal(t, models.SeverityLow, Level(0))
	assert.Equal(t, models.SeverityLow, Level(7))
	assert.Equal(t, models.SeverityMedium, Level(8))
	assert.Equal(t, models.SeverityMedium, Level(14))
	assert.Equal(t, models.SeverityHigh, Level(15))
}

func TestAreaRisk(t *testing.T) {
	store := &fakeStore{areas: []models.AreaStats{
		{Location: models.Location{Address: "Market"}, ReportCount: 4, HighSeverityCount: 2, ValidCount: 1},
		{Location: models.Location{Address: "Depot"}, ReportCount: 2, HighSeverityCount: 1, ValidCount: 0},
		{Location: models.Location{Address: "Park"}, ReportCount: 1},
	}}
	svc := NewService(store, fakeCounter{}, fakeCounter{})

	risk, err := svc.AreaRisk(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(TopAreas), store.limit)
	require.Len(t, risk, 3)
	assert.Equal(t, 16, risk[0].RiskScore)
	assert.Equal(t, models.SeverityHigh, risk[0].RiskLevel)
	assert.Equal(t, 7, risk[1].RiskScore)
	assert.Equal(t, models.SeverityLow, risk[1].RiskLevel)
	assert.Equal(t, models.SeverityLow, risk[2].RiskLevel)
}

func TestWeeklyLooksBackSevenDays(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, fakeCounter{}, fakeCounter{})
	fixed := time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	counts, err := svc.Weekly(context.Background())

	require.NoError(t, err)
	assert.Len(t, counts, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), store.since)
}

func TestOverview(t *testing.T) {
	reports := fakeCounter{
		models.StatusPending:    3,
		models.StatusValid:      5,
		models.StatusInvalid:    1,
		models.StatusInProgress: 2,
		models.StatusCleared:    4,
	}
	svc := NewService(&fakeStore{}, reports, fakeCounter{models.StatusPending: 0})

	o, err := svc.Overview(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(15), o.TotalReports)
	assert.Equal(t, int64(3), o.PendingReports)
	assert.Equal(t, int64(4), o.ClearedReports)

	_, err = NewService(&fakeStore{}, brokenCounter{}, brokenCounter{}).Overview(context.Background())
	assert.ErrorContains(t, err, "timeout")
}
