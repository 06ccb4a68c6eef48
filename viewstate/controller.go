package viewstate

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"violation-dashboard/models"
)

// Controller bundles the view state owned by one dashboard session: active
// tab and pagination, the map filter set, the edit dialogs, the media
// analysis wizard, and one fetch sequencer per logical view. Nothing here is
// shared across sessions, but concurrent requests can carry the same session
// id, so callers hold the embedded mutex across every read or mutation of
// the state fields. The fetch sequencers are atomic and may be used without
// it; never hold the lock across a network call.
type Controller struct {
	sync.Mutex

	Session string

	Tabs            *TabSelector
	Filters         models.FilterState
	UserDialog      EditDialog[models.User]
	ViolationDialog EditDialog[models.ViolationRecord]
	Wizard          *Wizard

	sequencers map[Tab]*FetchSequencer
}

// NewController creates the state for a fresh session.
func NewController() *Controller {
	return &Controller{
		Session: uuid.NewString(),
		Tabs:    NewTabSelector(),
		Filters: models.DefaultFilterState(),
		Wizard:  NewWizard(),
		sequencers: map[Tab]*FetchSequencer{
			TabUsers:      {},
			TabViolations: {},
			TabAnalytics:  {},
		},
	}
}

// BeginFetch issues the fetch token for a view, superseding in-flight fetches
// on the same view.
func (c *Controller) BeginFetch(view Tab) uint64 {
	return c.sequencers[view].Begin()
}

// AcceptFetch reports whether a completed fetch is still the latest for its
// view. Stale responses are discarded by the caller.
func (c *Controller) AcceptFetch(view Tab, token uint64) bool {
	return c.sequencers[view].Accept(token)
}

// SetFilters validates and installs a new filter set, superseding any fetch
// in flight for the violations view. The prior filters stay in place when
// validation fails.
func (c *Controller) SetFilters(fs models.FilterState) error {
	if fs.ConfidenceMin < 0 || fs.ConfidenceMin > 1 {
		return &ValidationError{Field: "confidence_min", Reason: "must be within [0, 1]"}
	}
	if !fs.DateFrom.IsZero() && !fs.DateTo.IsZero() && fs.DateTo.Before(fs.DateFrom) {
		return &ValidationError{Field: "date_to", Reason: "must not precede date_from"}
	}
	if fs.Category == "" {
		fs.Category = models.CategoryAll
	}
	c.Filters = fs
	c.BeginFetch(TabViolations)
	return nil
}

// ResetFilters restores the identity filter.
func (c *Controller) ResetFilters() {
	c.Filters = models.DefaultFilterState()
	c.BeginFetch(TabViolations)
}

// ParseFilterState builds a FilterState from raw query inputs. Dates arrive
// as yyyy-mm-dd; date_to is widened to the end of its day so the range is
// inclusive on both sides.
func ParseFilterState(category, confidenceMin, dateFrom, dateTo string) (models.FilterState, error) {
	fs := models.DefaultFilterState()
	if category != "" {
		fs.Category = category
	}
	if confidenceMin != "" {
		v, err := parseConfidence(confidenceMin)
		if err != nil {
			return fs, err
		}
		fs.ConfidenceMin = v
	}
	if dateFrom != "" {
		t, err := time.Parse("2006-01-02", dateFrom)
		if err != nil {
			return fs, &ValidationError{Field: "date_from", Reason: "expected yyyy-mm-dd"}
		}
		fs.DateFrom = t
	}
	if dateTo != "" {
		t, err := time.Parse("2006-01-02", dateTo)
		if err != nil {
			return fs, &ValidationError{Field: "date_to", Reason: "expected yyyy-mm-dd"}
		}
		fs.DateTo = t.Add(24*time.Hour - time.Nanosecond)
	}
	return fs, nil
}

func parseConfidence(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: "confidence_min", Reason: "not a number"}
	}
	if v < 0 || v > 1 {
		return 0, &ValidationError{Field: "confidence_min", Reason: "must be within [0, 1]"}
	}
	return v, nil
}
