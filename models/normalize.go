package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The detection backend has emitted several shapes for the same record over
// its lifetime: confidence as a number or a string, flat lat/lon next to a
// nested location object, "type" next to "category". All of that is absorbed
// here, once, so every call site works with the canonical ViolationRecord.

// flexFloat decodes a JSON number, a numeric string or null. Anything else
// decodes to zero rather than failing the whole record.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexTime decodes RFC3339, date-only strings or unix seconds. Unparseable
// values decode to the zero time; callers substitute their documented default.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*t = flexTime(time.Time{})
		return nil
	}
	if !strings.HasPrefix(s, `"`) {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			*t = flexTime(time.Unix(secs, 0).UTC())
			return nil
		}
		*t = flexTime(time.Time{})
		return nil
	}
	s = strings.Trim(s, `"`)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if v, err := time.Parse(layout, s); err == nil {
			*t = flexTime(v)
			return nil
		}
	}
	*t = flexTime(time.Time{})
	return nil
}

type rawLocation struct {
	Latitude  *flexFloat `json:"latitude"`
	Lat       *flexFloat `json:"lat"`
	Longitude *flexFloat `json:"longitude"`
	Lon       *flexFloat `json:"lon"`
	Lng       *flexFloat `json:"lng"`
}

type rawViolation struct {
	ID          string         `json:"id"`
	ViolationID string         `json:"violation_id"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Confidence  flexFloat      `json:"confidence"`
	Score       flexFloat      `json:"score"`
	CreatedAt   flexTime       `json:"created_at"`
	Timestamp   flexTime       `json:"timestamp"`
	Location    *rawLocation   `json:"location"`
	Latitude    *flexFloat     `json:"latitude"`
	Longitude   *flexFloat     `json:"longitude"`
	Satellite   *SatelliteData `json:"satellite_data"`
	Status      string         `json:"status"`
	Notes       string         `json:"notes"`
	UserID      string         `json:"user_id"`
}

func firstFloat(candidates ...*flexFloat) (float64, bool) {
	for _, c := range candidates {
		if c != nil {
			return float64(*c), true
		}
	}
	return 0, false
}

// DecodeViolation normalizes one backend record into the canonical shape.
// Malformed input degrades to documented defaults and never returns an error:
// missing category becomes "unknown", missing confidence becomes 0 (clamped
// to [0,1]), missing status becomes "pending".
func DecodeViolation(data []byte) ViolationRecord {
	var raw rawViolation
	// Unknown or broken fields fall back to zero values below.
	_ = json.Unmarshal(data, &raw)

	rec := ViolationRecord{
		ID:        raw.ID,
		Category:  raw.Category,
		Status:    raw.Status,
		Notes:     raw.Notes,
		UserID:    raw.UserID,
		Satellite: raw.Satellite,
	}
	if rec.ID == "" {
		rec.ID = raw.ViolationID
	}
	if rec.Category == "" {
		rec.Category = raw.Type
	}
	if rec.Category == "" {
		rec.Category = CategoryUnknown
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}

	conf := float64(raw.Confidence)
	if conf == 0 {
		conf = float64(raw.Score)
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	rec.Confidence = conf

	rec.CreatedAt = time.Time(raw.CreatedAt)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Time(raw.Timestamp)
	}

	if raw.Location != nil {
		lat, okLat := firstFloat(raw.Location.Latitude, raw.Location.Lat)
		lon, okLon := firstFloat(raw.Location.Longitude, raw.Location.Lon, raw.Location.Lng)
		if okLat && okLon {
			rec.Location = &Location{Latitude: lat, Longitude: lon}
		}
	}
	if rec.Location == nil && raw.Latitude != nil && raw.Longitude != nil {
		rec.Location = &Location{
			Latitude:  float64(*raw.Latitude),
			Longitude: float64(*raw.Longitude),
		}
	}
	return rec
}

// DecodeViolations normalizes a backend list payload, preserving order.
func DecodeViolations(items []json.RawMessage) []ViolationRecord {
	records := make([]ViolationRecord, 0, len(items))
	for _, item := range items {
		records = append(records, DecodeViolation(item))
	}
	return records
}

// Envelope is the `{success, data, error}` convention used by most backend
// endpoints.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// ViolationList is the top-level shape of the list endpoint.
type ViolationList struct {
	Violations []json.RawMessage `json:"violations"`
	Total      int               `json:"total"`
}

// DecodeViolationList accepts either the bare `{violations, total}` list
// shape or the same list wrapped in the standard envelope.
func DecodeViolationList(body []byte) ([]ViolationRecord, int, bool) {
	var list ViolationList
	if err := json.Unmarshal(body, &list); err == nil && list.Violations != nil {
		return DecodeViolations(list.Violations), list.Total, true
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success && env.Data != nil {
		if err := json.Unmarshal(env.Data, &list); err == nil && list.Violations != nil {
			return DecodeViolations(list.Violations), list.Total, true
		}
	}
	return nil, 0, false
}
