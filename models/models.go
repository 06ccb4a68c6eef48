package models

import (
	"time"
)

// Moderation statuses reported by the detection backend.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusResolved = "resolved"
)

// CategoryAll is the filter value that matches every category.
const CategoryAll = "all"

// CategoryUnknown is substituted when the backend omits the category.
const CategoryUnknown = "unknown"

// Location is a point suitable for map plotting.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SatelliteData carries the imagery enrichment attached to a detection.
type SatelliteData struct {
	Source     string `json:"source"`
	ImageryID  string `json:"imagery_id,omitempty"`
	CapturedAt string `json:"captured_at,omitempty"`
}

// ViolationRecord is the canonical record shape. Every record entering the
// service goes through DecodeViolation first, so downstream code never sees
// the backend's loose field variants.
type ViolationRecord struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Confidence float64        `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
	Location   *Location      `json:"location,omitempty"`
	Satellite  *SatelliteData `json:"satellite_data,omitempty"`
	Status     string         `json:"status"`
	Notes      string         `json:"notes,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
}

// HasLocation reports whether the record can be plotted on a map.
func (r *ViolationRecord) HasLocation() bool {
	return r.Location != nil
}

// Clone returns a deep copy. Used when snapshotting a record into an edit
// dialog so the original is never mutated locally.
func (r ViolationRecord) Clone() ViolationRecord {
	c := r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	if r.Satellite != nil {
		sat := *r.Satellite
		c.Satellite = &sat
	}
	return c
}

// User is a platform account as reported by the backend.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

// FilterState is the user-owned filter set for the map and violations views.
// Zero time values mean "not set".
type FilterState struct {
	Category      string    `json:"category"`
	ConfidenceMin float64   `json:"confidence_min"`
	DateFrom      time.Time `json:"date_from,omitempty"`
	DateTo        time.Time `json:"date_to,omitempty"`
}

// DefaultFilterState matches every record.
func DefaultFilterState() FilterState {
	return FilterState{Category: CategoryAll}
}

// IsIdentity reports whether the filter passes every record through.
func (f FilterState) IsIdentity() bool {
	return (f.Category == CategoryAll || f.Category == "") &&
		f.ConfidenceMin <= 0 && f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// DefaultPerPage is the fixed page size used by all list views.
const DefaultPerPage = 20

// PaginationState tracks the current page of a list view. The server is the
// source of truth for the record total; the client never recounts locally.
type PaginationState struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationState starts on page 1 with the fixed page size.
func NewPaginationState() PaginationState {
	return PaginationState{Page: 1, PerPage: DefaultPerPage}
}

// TotalPages computes ceil(totalRecords / perPage); zero for empty sets.
func TotalPages(totalRecords, perPage int) int {
	if totalRecords <= 0 || perPage <= 0 {
		return 0
	}
	return (totalRecords + perPage - 1) / perPage
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	Service          string `json:"service,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
}

// BroadcastMessage is the envelope pushed to WebSocket dashboard clients.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ViolationBatch is a batch of freshly detected violations for broadcast.
type ViolationBatch struct {
	Violations []ViolationRecord `json:"violations"`
	Count      int               `json:"count"`
}
