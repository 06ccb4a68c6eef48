package services

import (
	"context"
	"time"

	"github.com/apex/log"

	"violation-dashboard/models"
	"violation-dashboard/upstream"
)

// pollPerPage is the page size for the poll sweep. The sweep pages until the
// server total is reached, so this only bounds request count, not coverage.
const pollPerPage = 200

// ViolationBroadcaster delivers fresh violation batches to connected
// dashboards. Satisfied by WebSocketHub.
type ViolationBroadcaster interface {
	BroadcastViolations(batch models.ViolationBatch)
}

// ViolationPoller periodically sweeps the backend for violations created
// since the last poll and hands new ones to the broadcaster. Seen ids are
// tracked for the current day only, since the date_from cursor already
// excludes older records.
type ViolationPoller struct {
	client   *upstream.Client
	hub      ViolationBroadcaster
	interval time.Duration

	cursor time.Time
	seen   map[string]bool
}

// NewViolationPoller starts polling from "now"; history is not replayed to
// freshly started dashboards.
func NewViolationPoller(client *upstream.Client, hub ViolationBroadcaster, interval time.Duration) *ViolationPoller {
	return &ViolationPoller{
		client:   client,
		hub:      hub,
		interval: interval,
		cursor:   time.Now(),
		seen:     make(map[string]bool),
	}
}

// Start runs the poll loop until the context is cancelled.
func (p *ViolationPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("violation poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll sweeps every page of the cursor day so a burst larger than one page
// cannot hide newer records behind the first one.
func (p *ViolationPoller) poll(ctx context.Context) {
	var records []models.ViolationRecord
	for page := 1; ; page++ {
		batch, total, err := p.client.ListViolations(ctx, upstream.ViolationQuery{
			Page:     page,
			PerPage:  pollPerPage,
			DateFrom: p.cursor.Format("2006-01-02"),
		})
		if err != nil {
			// Transient failures only skip a tick; the next poll retries.
			log.Warnf("violation poll failed: %v", err)
			return
		}
		records = append(records, batch...)
		if len(records) >= total || len(batch) == 0 {
			break
		}
	}

	fresh := make([]models.ViolationRecord, 0, len(records))
	newest := p.cursor
	for _, r := range records {
		if r.ID == "" || p.seen[r.ID] {
			continue
		}
		if r.CreatedAt.Before(p.cursor) {
			continue
		}
		p.seen[r.ID] = true
		fresh = append(fresh, r)
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
	}
	if len(fresh) == 0 {
		return
	}

	// Advance the cursor to the start of the newest record's day so the
	// date_from query keeps returning the whole current day. The backend does
	// not promise any record order, hence the max over CreatedAt above.
	if day := newest.Truncate(24 * time.Hour); day.After(p.cursor) {
		p.cursor = day
		p.seen = map[string]bool{}
		for _, r := range fresh {
			p.seen[r.ID] = true
		}
	}

	log.Infof("broadcasting %d new violations", len(fresh))
	p.hub.BroadcastViolations(models.ViolationBatch{
		Violations: fresh,
		Count:      len(fresh),
	})
}
