// Package geospatial narrows violation batches for map rendering and
// clusters the surviving points into viewport cells.
package geospatial

import (
	"violation-dashboard/models"
)

// ApplyFilters returns the records passing every rule in the filter state,
// in their original relative order. The filter is stable and idempotent, and
// it always runs over the full record set handed in; callers must not feed a
// previously filtered subset back through with a changed filter.
//
// Rules, all of which must pass:
//   - category equals the filter category exactly, unless the filter is "all";
//   - confidence (0 when absent) is at least ConfidenceMin;
//   - createdAt falls inside [DateFrom, DateTo] where those are set.
func ApplyFilters(records []models.ViolationRecord, fs models.FilterState) []models.ViolationRecord {
	out := make([]models.ViolationRecord, 0, len(records))
	for _, r := range records {
		if fs.Category != "" && fs.Category != models.CategoryAll && r.Category != fs.Category {
			continue
		}
		if r.Confidence < fs.ConfidenceMin {
			continue
		}
		if !fs.DateFrom.IsZero() && r.CreatedAt.Before(fs.DateFrom) {
			continue
		}
		if !fs.DateTo.IsZero() && r.CreatedAt.After(fs.DateTo) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MapPoints drops records that carry no coordinates. They have nothing to
// plot, but they still belong in the non-spatial aggregations, so callers
// apply this only on the map path.
func MapPoints(records []models.ViolationRecord) []models.ViolationRecord {
	out := make([]models.ViolationRecord, 0, len(records))
	for _, r := range records {
		if r.HasLocation() {
			out = append(out, r)
		}
	}
	return out
}
