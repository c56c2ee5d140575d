package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosquitoalert/mosquito-alert-api/analytics"
	"github.com/mosquitoalert/mosquito-alert-api/api/handlers"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

type fakeAnalyticsDB struct{}

func (fakeAnalyticsDB) DailyCounts(context.Context, time.Time) ([]models.DailyCount, error) {
	return []models.DailyCount{{Date: "2026-10-14", Count: 3}, {Date: "2026-10-15", Count: 1}}, nil
}

func (fakeAnalyticsDB) BreedingDistribution(context.Context) ([]models.DistributionSlice, error) {
	return []models.DistributionSlice{{Name: "Drain", Value: 4}}, nil
}

func (fakeAnalyticsDB) AreaStats(context.Context, int64) ([]models.AreaStats, error) {
	return []models.AreaStats{
		{Location: models.Location{Address: "Yaba"}, ReportCount: 4, HighSeverityCount: 2, ValidCount: 1},
		{Location: models.Location{Address: "Ikeja"}, ReportCount: 1},
	}, nil
}

func newAdmin() (handlers.Admin, *fakeUserDB) {
	users := newFakeUserDB()
	reports := newFakeReportDB()
	return handlers.Admin{
		Analytics: analytics.NewService(fakeAnalyticsDB{}, reports, users),
		UDB:       users,
	}, users
}

func TestAdmin_AnalyticsRequireAdmin(t *testing.T) {
	h, users := newAdmin()
	reporter := users.add("Ada", models.RoleUser, 0)
	admin := users.add("Root", models.RoleAdmin, 0)

	routes := map[string]http.HandlerFunc{
		"/api/admin/analytics/overview":              h.OverviewHandler,
		"/api/admin/analytics/weekly-reports":        h.WeeklyReportsHandler,
		"/api/admin/analytics/breeding-distribution": h.BreedingDistributionHandler,
		"/api/admin/analytics/area-risk":             h.AreaRiskHandler,
		"/api/admin/users":                           h.UsersHandler,
		"/api/admin/metrics":                         h.MetricsHandler,
	}
	for path, handler := range routes {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler(rr, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			rr = httptest.NewRecorder()
			handler(rr, asActor(httptest.NewRequest(http.MethodGet, path, nil), actorFor(reporter), nil))
			assert.Equal(t, http.StatusForbidden, rr.Code)

			rr = httptest.NewRecorder()
			handler(rr, asActor(httptest.NewRequest(http.MethodGet, path, nil), actorFor(admin), nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestAdmin_AreaRisk(t *testing.T) {
	h, users := newAdmin()
	admin := users.add("Root", models.RoleAdmin, 0)

	rr := httptest.NewRecorder()
	h.AreaRiskHandler(rr, asActor(httptest.NewRequest(http.MethodGet, "/api/admin/analytics/area-risk", nil), actorFor(admin), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var areas []models.AreaRisk
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &areas))
	require.Len(t, areas, 2)
	// 4*2 + 2*3 + 1*2
	assert.Equal(t, 16, areas[0].RiskScore)
	assert.Equal(t, models.SeverityHigh, areas[0].RiskLevel)
	assert.Equal(t, models.SeverityLow, areas[1].RiskLevel)
}

func TestAdmin_Leaderboard(t *testing.T) {
	h, users := newAdmin()
	for i, pts := range []int{5, 40, 0, 25, 10, 15, 30, 35, 20, 45, 50, 1} {
		users.add(string(rune('A'+i))+"name", models.RoleUser, pts)
	}
	users.add("Root", models.RoleAdmin, 999)
	reporter := users.add("Zed", models.RoleUser, 2)

	rr := httptest.NewRecorder()
	h.LeaderboardHandler(rr, asActor(httptest.NewRequest(http.MethodGet, "/api/admin/leaderboard", nil), actorFor(reporter), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var top []models.AccountSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.Len(t, top, handlers.LeaderboardSize)
	assert.Equal(t, 50, top[0].Points)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Points, top[i].Points)
	}
	assert.NotContains(t, rr.Body.String(), "999")
}

func TestAdmin_UsersOmitPasswords(t *testing.T) {
	h, users := newAdmin()
	admin := users.add("Root", models.RoleAdmin, 0)
	users.add("Ada", models.RoleUser, 3)

	rr := httptest.NewRecorder()
	h.UsersHandler(rr, asActor(httptest.NewRequest(http.MethodGet, "/api/admin/users", nil), actorFor(admin), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)
	assert.NotContains(t, rr.Body.String(), "password")
}
