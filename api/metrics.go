package api

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RouteMetrics aggregates metrics for a specific route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsSummary is served to admins at /api/admin/metrics
type MetricsSummary struct {
	Since         time.Time       `json:"since"`
	TotalRequests int64           `json:"totalRequests"`
	TotalErrors   int64           `json:"totalErrors"`
	ErrorRate     float64         `json:"errorRate"`
	Routes        []*RouteMetrics `json:"routes"`
}

// MetricsCollector collects and aggregates request metrics
type MetricsCollector struct {
	mu            sync.RWMutex
	routeMetrics  map[string]*RouteMetrics
	since         time.Time
	totalRequests int64
	totalErrors   int64
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector returns an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		routeMetrics: make(map[string]*RouteMetrics),
		since:        time.Now(),
	}
}

// GetMetrics returns the global metrics collector
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// Record adds one finished request to the route's totals
func (mc *MetricsCollector) Record(method, path string, status int, d time.Duration) {
	key := method + " " + path

	mc.mu.Lock()
	defer mc.mu.Unlock()

	rm, ok := mc.routeMetrics[key]
	if !ok {
		rm = &RouteMetrics{Method: method, Path: path, MinTime: d}
		mc.routeMetrics[key] = rm
	}
	rm.Count++
	rm.TotalTime += d
	rm.AvgTime = rm.TotalTime / time.Duration(rm.Count)
	if d < rm.MinTime {
		rm.MinTime = d
	}
	if d > rm.MaxTime {
		rm.MaxTime = d
	}
	rm.LastRequest = time.Now()

	mc.totalRequests++
	if status >= 500 {
		rm.ErrorCount++
		mc.totalErrors++
	}
}

// GetSummary returns a copy of the totals with routes ordered slowest first
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := MetricsSummary{
		Since:         mc.since,
		TotalRequests: mc.totalRequests,
		TotalErrors:   mc.totalErrors,
		Routes:        make([]*RouteMetrics, 0, len(mc.routeMetrics)),
	}
	if mc.totalRequests > 0 {
		out.ErrorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	for _, rm := range mc.routeMetrics {
		cp := *rm
		out.Routes = append(out.Routes, &cp)
	}
	sort.Slice(out.Routes, func(i, j int) bool {
		if out.Routes[i].AvgTime != out.Routes[j].AvgTime {
			return out.Routes[i].AvgTime > out.Routes[j].AvgTime
		}
		return out.Routes[i].Path < out.Routes[j].Path
	})
	return out
}

var objectIDSegment = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// normalizeRoutePath collapses ids so that unmatched paths do not create one
// entry per report
func normalizeRoutePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if objectIDSegment.MatchString(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
