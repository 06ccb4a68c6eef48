// Package viewstate owns the per-session UI state machines: the active tab,
// pagination, the edit dialog, the media analysis wizard and the fetch
// sequencing that keeps stale responses from clobbering newer ones.
package viewstate

import (
	"violation-dashboard/models"
)

// Tab identifies one of the three dashboard views.
type Tab string

const (
	TabUsers      Tab = "users"
	TabViolations Tab = "violations"
	TabAnalytics  Tab = "analytics"
)

// Valid reports whether the tab is a recognized view.
func (t Tab) Valid() bool {
	switch t {
	case TabUsers, TabViolations, TabAnalytics:
		return true
	}
	return false
}

// TabSelector tracks the active tab and its pagination. Transitions happen
// only on explicit selection; entering a new tab resets to page 1 and
// requires a fresh fetch scoped to that tab.
type TabSelector struct {
	current    Tab
	pagination models.PaginationState
}

// NewTabSelector starts on the violations tab, page 1.
func NewTabSelector() *TabSelector {
	return &TabSelector{
		current:    TabViolations,
		pagination: models.NewPaginationState(),
	}
}

// Current returns the active tab.
func (s *TabSelector) Current() Tab {
	return s.current
}

// Pagination returns the active tab's pagination state.
func (s *TabSelector) Pagination() models.PaginationState {
	return s.pagination
}

// Select switches to the given tab. It returns true when the switch requires
// a refetch, false when the tab was already active. Selecting an unknown tab
// is rejected and the selector stays put.
func (s *TabSelector) Select(t Tab) (bool, error) {
	if !t.Valid() {
		return false, &ValidationError{Field: "tab", Reason: "unknown tab " + string(t)}
	}
	if t == s.current {
		return false, nil
	}
	s.current = t
	s.pagination = models.NewPaginationState()
	return true, nil
}

// SetTotal records the server-reported record total for the active tab and
// clamps the current page into the new range.
func (s *TabSelector) SetTotal(totalRecords int) {
	s.pagination.TotalPages = models.TotalPages(totalRecords, s.pagination.PerPage)
	s.pagination.Page = clampPage(s.pagination.Page, s.pagination.TotalPages)
}

// GoToPage moves to the requested page, clamped into [1, totalPages].
// Out-of-range requests never reach the server. Returns the page actually
// selected.
func (s *TabSelector) GoToPage(page int) int {
	s.pagination.Page = clampPage(page, s.pagination.TotalPages)
	return s.pagination.Page
}

// NextPage advances one page, clamped at the last page.
func (s *TabSelector) NextPage() int {
	return s.GoToPage(s.pagination.Page + 1)
}

// PrevPage steps back one page, clamped at page 1.
func (s *TabSelector) PrevPage() int {
	return s.GoToPage(s.pagination.Page - 1)
}

func clampPage(page, totalPages int) int {
	// An empty set (or no fetch yet) has only page 1 to stand on.
	if page < 1 || totalPages < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
