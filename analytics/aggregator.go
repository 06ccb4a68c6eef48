// Package analytics reduces violation record batches into the derived view
// models the dashboard charts consume. Everything here is a pure function:
// identical input yields identical output, and malformed records degrade to
// defaults instead of erroring.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"violation-dashboard/models"
)

// Confidence bucket boundaries: >0.8 is high, >=0.6 is medium, the rest low.
const (
	highCutoff   = 0.8
	mediumCutoff = 0.6
)

// dayKey is the normalized calendar-date grouping key. Grouping always uses
// this, never a locale-formatted display string.
const dayKey = "2006-01-02"

// CategoryStat is the per-category slice of a batch.
type CategoryStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AggregateByCategory counts records per category. Records without a category
// land under "unknown". Percentages are of the whole batch, rounded to one
// decimal. The counts always sum to len(records); an empty batch yields an
// empty map.
func AggregateByCategory(records []models.ViolationRecord) map[string]CategoryStat {
	out := make(map[string]CategoryStat)
	if len(records) == 0 {
		return out
	}
	counts := make(map[string]int)
	for _, r := range records {
		category := r.Category
		if category == "" {
			category = models.CategoryUnknown
		}
		counts[category]++
	}
	total := decimal.NewFromInt(int64(len(records)))
	for category, n := range counts {
		pct := decimal.NewFromInt(int64(n) * 100).Div(total).Round(1)
		f, _ := pct.Float64()
		out[category] = CategoryStat{Count: n, Percentage: f}
	}
	return out
}

// ConfidenceBuckets holds the three fixed confidence bins.
type ConfidenceBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// AggregateByConfidence bins every record into exactly one bucket, so
// High+Medium+Low == len(records). A record without a confidence score counts
// as 0 and lands in Low.
func AggregateByConfidence(records []models.ViolationRecord) ConfidenceBuckets {
	var b ConfidenceBuckets
	for _, r := range records {
		switch {
		case r.Confidence > highCutoff:
			b.High++
		case r.Confidence >= mediumCutoff:
			b.Medium++
		default:
			b.Low++
		}
	}
	return b
}

// TimeSeriesPoint is one calendar day with at least one record.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// BuildTimeSeries groups records by UTC calendar day and returns the points
// sorted ascending by date. Days without records do not appear. Records with
// no timestamp are bucketed under the current day.
func BuildTimeSeries(records []models.ViolationRecord) []TimeSeriesPoint {
	byDay := make(map[string]int)
	for _, r := range records {
		ts := r.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		byDay[ts.UTC().Format(dayKey)]++
	}
	points := make([]TimeSeriesPoint, 0, len(byDay))
	for day, count := range byDay {
		points = append(points, TimeSeriesPoint{Date: day, Count: count})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// Summary is the aggregate header shown above the charts.
type Summary struct {
	Total             int            `json:"total"`
	AverageConfidence float64        `json:"average_confidence"`
	ByStatus          map[string]int `json:"by_status"`
	BySource          map[string]int `json:"by_source"`
}

// Summarize computes the batch totals: count, mean confidence (three
// decimals), and breakdowns by moderation status and imagery source. Records
// without satellite enrichment count under the "camera" source.
func Summarize(records []models.ViolationRecord) Summary {
	s := Summary{
		Total:    len(records),
		ByStatus: make(map[string]int),
		BySource: make(map[string]int),
	}
	if len(records) == 0 {
		return s
	}
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(decimal.NewFromFloat(r.Confidence))

		status := r.Status
		if status == "" {
			status = models.StatusPending
		}
		s.ByStatus[status]++

		source := "camera"
		if r.Satellite != nil && r.Satellite.Source != "" {
			source = r.Satellite.Source
		}
		s.BySource[source]++
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(records)))).Round(3).Float64()
	s.AverageConfidence = avg
	return s
}
