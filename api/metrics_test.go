package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Record(t *testing.T) {
	mc := NewMetricsCollector()
	mc.Record(http.MethodGet, "/api/reports", 200, 10*time.Millisecond)
	mc.Record(http.MethodGet, "/api/reports", 500, 30*time.Millisecond)
	mc.Record(http.MethodPost, "/api/reports", 201, 100*time.Millisecond)

	s := mc.GetSummary()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(1), s.TotalErrors)
	require.Len(t, s.Routes, 2)

	// slowest first
	assert.Equal(t, http.MethodPost, s.Routes[0].Method)
	get := s.Routes[1]
	assert.Equal(t, int64(2), get.Count)
	assert.Equal(t, int64(1), get.ErrorCount)
	assert.Equal(t, 20*time.Millisecond, get.AvgTime)
	assert.Equal(t, 10*time.Millisecond, get.MinTime)
	assert.Equal(t, 30*time.Millisecond, get.MaxTime)
}

func TestNormalizeRoutePath(t *testing.T) {
	assert.Equal(t, "/api/reports/{id}/status", normalizeRoutePath("/api/reports/6523f1c2a9b8e4d5c6f70812/status"))
	assert.Equal(t, "/api/reports/my-reports", normalizeRoutePath("/api/reports/my-reports"))
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/api/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/abc", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	found := false
	for _, rm := range GetMetrics().GetSummary().Routes {
		if rm.Path == "/api/reports/{id}" && rm.Method == http.MethodGet {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	rr := httptest.NewRecorder()
	TimeoutMiddleware(20*time.Millisecond)(slow).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusRequestTimeout, rr.Code)

	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	rr = httptest.NewRecorder()
	TimeoutMiddleware(time.Second)(fast).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestWithQueryTimeout(t *testing.T) {
	ctx, cancel := WithQueryTimeout(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(QueryTimeout), deadline, time.Second)
}
