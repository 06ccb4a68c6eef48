package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"violation-dashboard/models"
	"violation-dashboard/upstream"
)

type batchRecorder struct {
	batches []models.ViolationBatch
}

func (r *batchRecorder) BroadcastViolations(b models.ViolationBatch) {
	r.batches = append(r.batches, b)
}

func (r *batchRecorder) total() int {
	n := 0
	for _, b := range r.batches {
		n += b.Count
	}
	return n
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTestPoller(rec *batchRecorder, cursor time.Time) *ViolationPoller {
	p := NewViolationPoller(upstream.NewClient(server.URL, 5*time.Second), rec, time.Second)
	p.cursor = cursor
	return p
}

func TestPollerSweepsPastPageOne(t *testing.T) {
	it(func() {
		for i := 0; i < pollPerPage+5; i++ {
			backend.violations = append(backend.violations,
				violation(fmt.Sprintf("v%d", i), "parking", 0.9, "2025-03-01", 0, 0))
		}
		rec := &batchRecorder{}
		p := newTestPoller(rec, day("2025-03-01"))

		p.poll(context.Background())
		if got := rec.total(); got != pollPerPage+5 {
			t.Errorf("broadcast %d violations, want %d", got, pollPerPage+5)
		}
		if backend.listCalls != 2 {
			t.Errorf("list called %d times, want 2 pages", backend.listCalls)
		}

		// Nothing new: the second sweep broadcasts nothing.
		p.poll(context.Background())
		if len(rec.batches) != 1 {
			t.Errorf("repeat sweep rebroadcast old violations: %d batches", len(rec.batches))
		}
	})
}

func TestPollerCursorFollowsNewestRecord(t *testing.T) {
	it(func() {
		// The newest record is not the last element returned.
		backend.violations = []map[string]interface{}{
			violation("v1", "parking", 0.9, "2025-03-02", 0, 0),
			violation("v2", "litter", 0.7, "2025-03-01", 0, 0),
		}
		rec := &batchRecorder{}
		p := newTestPoller(rec, day("2025-03-01"))

		p.poll(context.Background())
		if got := rec.total(); got != 2 {
			t.Fatalf("broadcast %d violations, want 2", got)
		}
		if !p.cursor.Equal(day("2025-03-02")) {
			t.Errorf("cursor = %v, want the newest record's day", p.cursor)
		}

		// A record from the day now behind the cursor stays excluded even
		// though the seen set was reset.
		backend.violations = append(backend.violations,
			violation("v3", "parking", 0.8, "2025-03-01", 0, 0),
			violation("v4", "parking", 0.8, "2025-03-02", 0, 0))
		p.poll(context.Background())
		if got := rec.total(); got != 3 {
			t.Errorf("broadcast %d violations after second sweep, want 3", got)
		}
	})
}
