package services

import (
	"context"
	"errors"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"violation-dashboard/analytics"
	"violation-dashboard/geospatial"
	"violation-dashboard/models"
	"violation-dashboard/upstream"
	"violation-dashboard/viewstate"
)

// ErrSuperseded marks a fetch whose response arrived after a newer fetch was
// issued for the same view. The caller drops the result; nothing is an error
// from the user's point of view.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// mapFetchPerPage is the page size used when pulling records for the map and
// analytics views, which need the whole filtered set rather than one table
// page.
const mapFetchPerPage = 500

// DashboardService wires the upstream client to the per-session view state
// and the pure aggregation/filter functions. Each session owns its state
// exclusively; the service only guards the session table itself.
type DashboardService struct {
	client *upstream.Client

	mu       sync.Mutex
	sessions map[string]*viewstate.Controller
}

// NewDashboardService creates the service around a backend client.
func NewDashboardService(client *upstream.Client) *DashboardService {
	return &DashboardService{
		client:   client,
		sessions: make(map[string]*viewstate.Controller),
	}
}

// Session returns the controller for a session id, creating one on first
// use. An empty id gets a fresh session.
func (s *DashboardService) Session(id string) *viewstate.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if ctrl, ok := s.sessions[id]; ok {
			return ctrl
		}
	}
	ctrl := viewstate.NewController()
	s.sessions[ctrl.Session] = ctrl
	return ctrl
}

// ViolationsView is one page of the violations table.
type ViolationsView struct {
	Violations []models.ViolationRecord `json:"violations"`
	Total      int                      `json:"total"`
	Pagination models.PaginationState   `json:"pagination"`
}

// Violations fetches the current page of the violations tab under the
// session's filters. A response that lost the race to a newer fetch is
// discarded and reported as ErrSuperseded; the view state is untouched by
// failures. The session lock is held only around state access, never across
// the backend call itself.
func (s *DashboardService) Violations(ctx context.Context, ctrl *viewstate.Controller) (*ViolationsView, error) {
	ctrl.Lock()
	token := ctrl.BeginFetch(viewstate.TabViolations)
	p := ctrl.Tabs.Pagination()
	q := violationQuery(ctrl.Filters, p.Page, p.PerPage)
	ctrl.Unlock()

	records, total, err := s.client.ListViolations(ctx, q)
	if err != nil {
		return nil, err
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	if !ctrl.AcceptFetch(viewstate.TabViolations, token) {
		return nil, ErrSuperseded
	}
	ctrl.Tabs.SetTotal(total)
	return &ViolationsView{
		Violations: records,
		Total:      total,
		Pagination: ctrl.Tabs.Pagination(),
	}, nil
}

// UsersView is one page of the users table.
type UsersView struct {
	Users      []models.User          `json:"users"`
	Total      int                    `json:"total"`
	Pagination models.PaginationState `json:"pagination"`
}

// Users fetches the current page of the users tab.
func (s *DashboardService) Users(ctx context.Context, ctrl *viewstate.Controller) (*UsersView, error) {
	ctrl.Lock()
	token := ctrl.BeginFetch(viewstate.TabUsers)
	p := ctrl.Tabs.Pagination()
	ctrl.Unlock()

	users, total, err := s.client.ListUsers(ctx, p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}

	ctrl.Lock()
	defer ctrl.Unlock()
	if !ctrl.AcceptFetch(viewstate.TabUsers, token) {
		return nil, ErrSuperseded
	}
	ctrl.Tabs.SetTotal(total)
	return &UsersView{
		Users:      users,
		Total:      total,
		Pagination: ctrl.Tabs.Pagination(),
	}, nil
}

// AnalyticsView bundles the client-side aggregations with the backend's own
// summary for the analytics tab.
type AnalyticsView struct {
	Categories map[string]analytics.CategoryStat `json:"categories"`
	Confidence analytics.ConfidenceBuckets       `json:"confidence"`
	TimeSeries []analytics.TimeSeriesPoint       `json:"time_series"`
	Summary    analytics.Summary                 `json:"summary"`
	Backend    *upstream.BackendAnalytics        `json:"backend,omitempty"`
}

// Analytics fetches the filtered record set and the backend summary
// concurrently and reduces the records into chart view models. Aggregations
// run over the full (non-geographically-filtered) set, using the filter
// snapshot taken with the fetch token so a mid-flight filter edit cannot mix
// into the result.
func (s *DashboardService) Analytics(ctx context.Context, ctrl *viewstate.Controller, period string) (*AnalyticsView, error) {
	ctrl.Lock()
	token := ctrl.BeginFetch(viewstate.TabAnalytics)
	fs := ctrl.Filters
	ctrl.Unlock()

	var (
		records []models.ViolationRecord
		backend *upstream.BackendAnalytics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.fetchAll(gctx, fs)
		return err
	})
	g.Go(func() error {
		var err error
		backend, err = s.client.DetailedAnalytics(gctx, period, fs.Category, "")
		if err != nil {
			// The backend summary is an enrichment; the charts still render
			// from client-side aggregation.
			log.Warnf("detailed analytics unavailable: %v", err)
			backend = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !ctrl.AcceptFetch(viewstate.TabAnalytics, token) {
		return nil, ErrSuperseded
	}

	filtered := geospatial.ApplyFilters(records, fs)
	return &AnalyticsView{
		Categories: analytics.AggregateByCategory(filtered),
		Confidence: analytics.AggregateByConfidence(filtered),
		TimeSeries: analytics.BuildTimeSeries(filtered),
		Summary:    analytics.Summarize(filtered),
		Backend:    backend,
	}, nil
}

// MapView is the clustered marker set for the map.
type MapView struct {
	Clusters []geospatial.Cluster `json:"clusters"`
	Matched  int                  `json:"matched"`
	Plotted  int                  `json:"plotted"`
}

// Map fetches the full record set, applies the session filters, drops
// records without coordinates and clusters the rest into the viewport.
// S2 clustering is used unless a fixed grid is requested.
func (s *DashboardService) Map(ctx context.Context, ctrl *viewstate.Controller, vp *geospatial.ViewPort, useGrid bool) (*MapView, error) {
	ctrl.Lock()
	token := ctrl.BeginFetch(viewstate.TabViolations)
	fs := ctrl.Filters
	ctrl.Unlock()

	records, err := s.fetchAll(ctx, fs)
	if err != nil {
		return nil, err
	}
	if !ctrl.AcceptFetch(viewstate.TabViolations, token) {
		return nil, ErrSuperseded
	}

	filtered := geospatial.ApplyFilters(records, fs)
	points := geospatial.MapPoints(filtered)

	var clusters []geospatial.Cluster
	if useGrid {
		aggr := geospatial.NewGridAggregator(vp, 10, 16)
		for _, r := range points {
			aggr.Add(r)
		}
		clusters = aggr.Clusters()
	} else {
		aggr := geospatial.NewS2Aggregator(vp)
		for _, r := range points {
			aggr.Add(r)
		}
		clusters = aggr.Clusters()
	}
	return &MapView{
		Clusters: clusters,
		Matched:  len(filtered),
		Plotted:  len(points),
	}, nil
}

// SaveViolation commits the violation edit dialog against the backend. The
// dialog stays open on failure. The session lock is held for the whole
// commit so the scratch copy cannot change mid-save.
func (s *DashboardService) SaveViolation(ctx context.Context, ctrl *viewstate.Controller) error {
	ctrl.Lock()
	defer ctrl.Unlock()
	return ctrl.ViolationDialog.Save(func(rec models.ViolationRecord) error {
		return s.client.UpdateViolation(ctx, rec.ID, upstream.ViolationUpdate{
			Category: rec.Category,
			Status:   rec.Status,
			Notes:    rec.Notes,
		})
	})
}

// SaveUser commits the user edit dialog against the backend.
func (s *DashboardService) SaveUser(ctx context.Context, ctrl *viewstate.Controller) error {
	ctrl.Lock()
	defer ctrl.Unlock()
	return ctrl.UserDialog.Save(func(u models.User) error {
		active := u.Active
		return s.client.UpdateUser(ctx, u.ID, upstream.UserUpdate{
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
			Active:   &active,
		})
	})
}

// violationQuery translates a filter snapshot into list parameters. Dates go
// over the wire as yyyy-mm-dd; confidence narrowing happens client-side in
// ApplyFilters since the backend has no such parameter. Callers take the
// snapshot under the session lock.
func violationQuery(fs models.FilterState, page, perPage int) upstream.ViolationQuery {
	q := upstream.ViolationQuery{
		Page:     page,
		PerPage:  perPage,
		Category: fs.Category,
	}
	if !fs.DateFrom.IsZero() {
		q.DateFrom = fs.DateFrom.Format("2006-01-02")
	}
	if !fs.DateTo.IsZero() {
		q.DateTo = fs.DateTo.Format("2006-01-02")
	}
	return q
}

// fetchAll pages through the violation list until the server-reported total
// is reached. Map and analytics views aggregate over the whole set, not one
// table page.
func (s *DashboardService) fetchAll(ctx context.Context, fs models.FilterState) ([]models.ViolationRecord, error) {
	var all []models.ViolationRecord
	for page := 1; ; page++ {
		records, total, err := s.client.ListViolations(ctx, violationQuery(fs, page, mapFetchPerPage))
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(all) >= total || len(records) == 0 {
			return all, nil
		}
	}
}
