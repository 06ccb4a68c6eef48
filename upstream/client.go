// Package upstream is the HTTP client for the violation-detection backend.
// It is the only place a network failure can originate; everything it returns
// is either decoded canonical data or a typed, recoverable error.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/apex/log"

	"violation-dashboard/models"
)

// APIError is a failure reported by the backend itself: a non-2xx status or
// a success:false envelope. It carries the server message when one was given.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the detection backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client with a request timeout so a hung
// backend never leaves a view loading forever.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ViolationQuery are the list endpoint parameters. Zero values are omitted.
type ViolationQuery struct {
	Page     int
	PerPage  int
	Status   string
	Category string
	UserID   string
	DateFrom string
	DateTo   string
}

func (q ViolationQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Category != "" && q.Category != models.CategoryAll {
		v.Set("category", q.Category)
	}
	if q.UserID != "" {
		v.Set("user_id", q.UserID)
	}
	if q.DateFrom != "" {
		v.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		v.Set("date_to", q.DateTo)
	}
	return v
}

// ListViolations fetches one page of violations, normalized into canonical
// records, plus the server-side record total.
func (c *Client) ListViolations(ctx context.Context, q ViolationQuery) ([]models.ViolationRecord, int, error) {
	body, err := c.get(ctx, "/api/violations", q.values())
	if err != nil {
		return nil, 0, err
	}
	records, total, ok := models.DecodeViolationList(body)
	if !ok {
		return nil, 0, &APIError{StatusCode: http.StatusOK, Message: "unrecognized violation list shape"}
	}
	return records, total, nil
}

// ViolationUpdate carries the editable violation fields.
type ViolationUpdate struct {
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// UpdateViolation submits a moderation edit.
func (c *Client) UpdateViolation(ctx context.Context, id string, upd ViolationUpdate) error {
	return c.send(ctx, http.MethodPut, "/api/violations/"+url.PathEscape(id), upd)
}

// DeleteViolation removes a violation.
func (c *Client) DeleteViolation(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/violations/"+url.PathEscape(id), nil)
}

type userList struct {
	Users []models.User `json:"users"`
	Total int           `json:"total"`
}

// ListUsers fetches one page of platform users.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]models.User, int, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	body, err := c.get(ctx, "/api/users", v)
	if err != nil {
		return nil, 0, err
	}
	var list userList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, 0, fmt.Errorf("failed to decode user list: %w", err)
	}
	return list.Users, list.Total, nil
}

// UserUpdate carries the editable user fields.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// UpdateUser edits a user account.
func (c *Client) UpdateUser(ctx context.Context, id string, upd UserUpdate) error {
	return c.send(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), upd)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
}

// BackendAnalytics is the server-side aggregated summary.
type BackendAnalytics struct {
	TotalViolations   int                `json:"total_violations"`
	AverageConfidence float64            `json:"average_confidence"`
	ByCategory        map[string]int     `json:"by_category"`
	BySource          map[string]int     `json:"by_source"`
	ByStatus          map[string]int     `json:"by_status"`
	Trends            map[string]float64 `json:"trends,omitempty"`
}

// DetailedAnalytics fetches the backend's aggregated summary for a period.
func (c *Client) DetailedAnalytics(ctx context.Context, period, category, userID string) (*BackendAnalytics, error) {
	v := url.Values{}
	if period != "" {
		v.Set("period", period)
	}
	if category != "" && category != models.CategoryAll {
		v.Set("category", category)
	}
	if userID != "" {
		v.Set("user_id", userID)
	}
	body, err := c.get(ctx, "/api/analytics/detailed", v)
	if err != nil {
		return nil, err
	}
	var out BackendAnalytics
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analytics: %w", err)
	}
	return &out, nil
}

// get performs a GET and unwraps the response envelope when present.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// send performs a JSON-bodied mutation and checks the envelope.
func (c *Client) send(ctx context.Context, method, path string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	_, err = c.do(req)
	return err
}

// do executes a request and returns the raw data payload. A non-2xx status
// or a success:false envelope becomes an *APIError with the server message;
// transport failures are wrapped and recoverable.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env models.Envelope
		if json.Unmarshal(body, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		log.WithField("url", req.URL.Path).Warnf("backend call failed: %v", apiErr)
		return nil, apiErr
	}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err == nil && !env.Success && env.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if env.Success && env.Data != nil {
		return env.Data, nil
	}
	return body, nil
}
