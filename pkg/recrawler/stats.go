package recrawler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats are the run counters, updated atomically from every stage.
type Stats struct {
	dnsResolved atomic.Int64
	dnsFailed   atomic.Int64
	fetched     atomic.Int64
	fetchFailed atomic.Int64
	skipped     atomic.Int64
	written     atomic.Int64
}

// Snapshot is a point-in-time copy for reporting.
type Snapshot struct {
	DNSResolved int64 `json:"dns_resolved"`
	DNSFailed   int64 `json:"dns_failed"`
	Fetched     int64 `json:"fetched"`
	FetchFailed int64 `json:"fetch_failed"`
	Skipped     int64 `json:"skipped"`
	Written     int64 `json:"written"`
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		DNSResolved: s.dnsResolved.Load(),
		DNSFailed:   s.dnsFailed.Load(),
		Fetched:     s.fetched.Load(),
		FetchFailed: s.fetchFailed.Load(),
		Skipped:     s.skipped.Load(),
		Written:     s.written.Load(),
	}
}

// logLoop reports progress periodically until ctx ends.
func (s *Stats) logLoop(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
		case <-ticker.C:
			snap := s.Snapshot()
			elapsed := time.Since(started).Seconds()
			rate := float64(snap.Fetched) / elapsed
			logger.Info("recrawl progress",
				"fetched", humanize.Comma(snap.Fetched),
				"failed", humanize.Comma(snap.FetchFailed),
				"skipped", humanize.Comma(snap.Skipped),
				"written", humanize.Comma(snap.Written),
				"rate_per_sec", humanize.CommafWithDigits(rate, 1))
		case <-ctx.Done():
			return
		}
	}
}
