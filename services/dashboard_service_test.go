package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jknair0/beforeeach"

	"violation-dashboard/geospatial"
	"violation-dashboard/models"
	"violation-dashboard/upstream"
	"violation-dashboard/viewstate"
)

type fakeBackend struct {
	mu         sync.Mutex
	violations []map[string]interface{}
	listCalls  int

	// beforeList runs before every list response is written, letting a test
	// race a newer fetch against an in-flight one.
	beforeList func()
}

var (
	backend *fakeBackend
	server  *httptest.Server
	service *DashboardService
)

func setUp() {
	backend = &fakeBackend{}
	server = httptest.NewServer(backend)
	service = NewDashboardService(upstream.NewClient(server.URL, 5*time.Second))
}

func tearDown() {
	server.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/violations":
		b.mu.Lock()
		b.listCalls++
		hook := b.beforeList
		b.mu.Unlock()
		if hook != nil {
			hook()
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 {
			perPage = len(b.violations)
		}
		start := (page - 1) * perPage
		end := start + perPage
		if start > len(b.violations) {
			start = len(b.violations)
		}
		if end > len(b.violations) {
			end = len(b.violations)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"violations": b.violations[start:end],
			"total":      len(b.violations),
		})
	case "/api/analytics/detailed":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"total_violations":   len(b.violations),
				"average_confidence": 0.75,
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func violation(id, category string, confidence float64, day string, lat, lon float64) map[string]interface{} {
	v := map[string]interface{}{
		"id":         id,
		"category":   category,
		"confidence": confidence,
		"created_at": day + "T12:00:00Z",
	}
	if lat != 0 || lon != 0 {
		v["location"] = map[string]float64{"latitude": lat, "longitude": lon}
	}
	return v
}

func TestViolationsPage(t *testing.T) {
	it(func() {
		for i := 0; i < 45; i++ {
			backend.violations = append(backend.violations,
				violation(fmt.Sprintf("v%d", i), "parking", 0.9, "2025-03-01", 0, 0))
		}
		ctrl := service.Session("")

		view, err := service.Violations(context.Background(), ctrl)
		if err != nil {
			t.Fatalf("Violations() error = %v", err)
		}
		if view.Total != 45 {
			t.Errorf("total = %d, want 45", view.Total)
		}
		if len(view.Violations) != 20 {
			t.Errorf("page size = %d, want 20", len(view.Violations))
		}
		if view.Pagination.TotalPages != 3 {
			t.Errorf("total pages = %d, want 3", view.Pagination.TotalPages)
		}
	})
}

func TestViolationsPageClampedAfterShrink(t *testing.T) {
	it(func() {
		for i := 0; i < 45; i++ {
			backend.violations = append(backend.violations,
				violation(fmt.Sprintf("v%d", i), "parking", 0.9, "2025-03-01", 0, 0))
		}
		ctrl := service.Session("")
		if _, err := service.Violations(context.Background(), ctrl); err != nil {
			t.Fatalf("Violations() error = %v", err)
		}
		ctrl.Tabs.GoToPage(3)

		// The data set shrinks under the session: the stale page clamps.
		backend.violations = backend.violations[:10]
		view, err := service.Violations(context.Background(), ctrl)
		if err != nil {
			t.Fatalf("Violations() error = %v", err)
		}
		if view.Pagination.Page != 1 || view.Pagination.TotalPages != 1 {
			t.Errorf("pagination = %+v, want page 1 of 1", view.Pagination)
		}
	})
}

func TestStaleFetchSuperseded(t *testing.T) {
	it(func() {
		backend.violations = append(backend.violations,
			violation("v1", "parking", 0.9, "2025-03-01", 0, 0))
		ctrl := service.Session("")

		// A newer fetch begins while the first response is still in flight.
		backend.beforeList = func() {
			backend.mu.Lock()
			backend.beforeList = nil
			backend.mu.Unlock()
			ctrl.BeginFetch(viewstate.TabViolations)
		}
		_, err := service.Violations(context.Background(), ctrl)
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("Violations() error = %v, want ErrSuperseded", err)
		}
		if ctrl.Tabs.Pagination().TotalPages != 0 {
			t.Errorf("stale response must not touch pagination: %+v", ctrl.Tabs.Pagination())
		}
	})
}

func TestAnalyticsAggregatesFiltered(t *testing.T) {
	it(func() {
		backend.violations = []map[string]interface{}{
			violation("v1", "parking", 0.9, "2025-03-01", 0, 0),
			violation("v2", "parking", 0.7, "2025-03-02", 0, 0),
			violation("v3", "litter", 0.3, "2025-03-02", 0, 0),
		}
		ctrl := service.Session("")
		fs := ctrl.Filters
		fs.ConfidenceMin = 0.5
		if err := ctrl.SetFilters(fs); err != nil {
			t.Fatalf("SetFilters() error = %v", err)
		}

		view, err := service.Analytics(context.Background(), ctrl, "month")
		if err != nil {
			t.Fatalf("Analytics() error = %v", err)
		}
		if view.Summary.Total != 2 {
			t.Errorf("summary total = %d, want 2 after confidence filter", view.Summary.Total)
		}
		if got := view.Categories["parking"].Count; got != 2 {
			t.Errorf("parking count = %d, want 2", got)
		}
		if view.Confidence.High != 1 || view.Confidence.Medium != 1 || view.Confidence.Low != 0 {
			t.Errorf("confidence buckets = %+v", view.Confidence)
		}
		if len(view.TimeSeries) != 2 {
			t.Errorf("time series has %d days, want 2", len(view.TimeSeries))
		}
		if view.Backend == nil || view.Backend.TotalViolations != 3 {
			t.Errorf("backend summary = %+v", view.Backend)
		}
	})
}

func TestAnalyticsSurvivesBackendSummaryFailure(t *testing.T) {
	it(func() {
		backend.violations = []map[string]interface{}{
			violation("v1", "parking", 0.9, "2025-03-01", 0, 0),
		}
		// The detailed-analytics endpoint is down but the list still works.
		mux := http.NewServeMux()
		mux.Handle("/api/violations", backend)
		mux.HandleFunc("/api/analytics/detailed", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"success":false,"error":"overloaded"}`, http.StatusServiceUnavailable)
		})
		broken := httptest.NewServer(mux)
		defer broken.Close()
		svc := NewDashboardService(upstream.NewClient(broken.URL, 5*time.Second))
		ctrl := svc.Session("")

		view, err := svc.Analytics(context.Background(), ctrl, "month")
		if err != nil {
			t.Fatalf("Analytics() error = %v", err)
		}
		if view.Backend != nil {
			t.Errorf("backend summary should be absent, got %+v", view.Backend)
		}
		if view.Summary.Total != 1 {
			t.Errorf("client-side aggregation lost: %+v", view.Summary)
		}
	})
}

func TestMapDropsRecordsWithoutLocation(t *testing.T) {
	it(func() {
		backend.violations = []map[string]interface{}{
			violation("v1", "parking", 0.9, "2025-03-01", 55.75, 37.61),
			violation("v2", "parking", 0.8, "2025-03-01", 55.75, 37.61),
			violation("v3", "litter", 0.4, "2025-03-01", 0, 0),
		}
		ctrl := service.Session("")
		vp := &geospatial.ViewPort{LatMin: 55, LonMin: 37, LatMax: 56, LonMax: 38}

		view, err := service.Map(context.Background(), ctrl, vp, true)
		if err != nil {
			t.Fatalf("Map() error = %v", err)
		}
		if view.Matched != 3 || view.Plotted != 2 {
			t.Errorf("matched/plotted = %d/%d, want 3/2", view.Matched, view.Plotted)
		}
		var total int64
		for _, c := range view.Clusters {
			total += c.Count
		}
		if total != 2 {
			t.Errorf("cluster counts sum to %d, want 2", total)
		}
	})
}

func TestFetchAllPagesThroughTotal(t *testing.T) {
	it(func() {
		for i := 0; i < mapFetchPerPage+5; i++ {
			backend.violations = append(backend.violations,
				violation(fmt.Sprintf("v%d", i), "parking", 0.9, "2025-03-01", 55.75, 37.61))
		}
		ctrl := service.Session("")
		vp := &geospatial.ViewPort{LatMin: 55, LonMin: 37, LatMax: 56, LonMax: 38}

		view, err := service.Map(context.Background(), ctrl, vp, true)
		if err != nil {
			t.Fatalf("Map() error = %v", err)
		}
		if view.Matched != mapFetchPerPage+5 {
			t.Errorf("matched = %d, want %d", view.Matched, mapFetchPerPage+5)
		}
		if backend.listCalls != 2 {
			t.Errorf("list called %d times, want 2 pages", backend.listCalls)
		}
	})
}

func TestConcurrentFilterEditsAndFetches(t *testing.T) {
	it(func() {
		for i := 0; i < 30; i++ {
			backend.violations = append(backend.violations,
				violation(fmt.Sprintf("v%d", i), "parking", 0.9, "2025-03-01", 0, 0))
		}
		ctrl := service.Session("")

		// Filter edits race list fetches on the same session; every fetch
		// must either apply cleanly or report itself superseded.
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					if _, err := service.Violations(context.Background(), ctrl); err != nil && !errors.Is(err, ErrSuperseded) {
						t.Errorf("Violations() error = %v", err)
					}
					return
				}
				ctrl.Lock()
				defer ctrl.Unlock()
				if err := ctrl.SetFilters(models.FilterState{Category: "parking", ConfidenceMin: 0.5}); err != nil {
					t.Errorf("SetFilters() error = %v", err)
				}
			}(i)
		}
		wg.Wait()

		ctrl.Lock()
		defer ctrl.Unlock()
		if ctrl.Filters.Category != "parking" {
			t.Errorf("filters lost under concurrency: %+v", ctrl.Filters)
		}
	})
}

func TestSessionReuse(t *testing.T) {
	it(func() {
		first := service.Session("")
		same := service.Session(first.Session)
		if same != first {
			t.Error("known session id must return the same controller")
		}
		other := service.Session("")
		if other == first {
			t.Error("empty session id must create a fresh controller")
		}
	})
}
