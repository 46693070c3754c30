// Package recrawler refetches known URLs through a three-stage
// pipeline: DNS prefetch, a bounded fetch pool, and a batching writer.
package recrawler

import (
	"context"
	"time"
)

// CrawlResult is one successful fetch.
type CrawlResult struct {
	URL           string    `json:"url"`
	Domain        string    `json:"domain"`
	Status        int       `json:"status"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	Language      string    `json:"language,omitempty"`
	ContentLength int64     `json:"content_length,omitempty"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// CrawlState tracks attempts for one URL, successful or not.
type CrawlState struct {
	URL        string    `json:"url"`
	Attempts   int       `json:"attempts"`
	LastStatus int       `json:"last_status"`
	LastError  string    `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Dead-domain reasons recorded when a domain is killed.
const (
	ReasonDNSNXDomain      = "dns_nxdomain"
	ReasonDNSTimeout       = "dns_timeout"
	ReasonProbeUnreachable = "probe_unreachable"
	ReasonHTTPTimeout      = "http_timeout_killed"
	ReasonHTTPRefused      = "http_refused"
)

// SeedStore supplies the URLs to refetch.
type SeedStore interface {
	// Seeds returns every seed URL.
	Seeds(ctx context.Context) ([]string, error)

	// AddSeeds registers URLs for future runs.
	AddSeeds(ctx context.Context, urls []string) error
}

// ResultStore receives successful fetches in batches.
type ResultStore interface {
	WriteResults(ctx context.Context, batch []CrawlResult) error
}

// StateStore receives per-URL crawl state deltas and answers resume
// queries.
type StateStore interface {
	WriteStates(ctx context.Context, batch []CrawlState) error

	// ProcessedURLs returns the set of URLs already attempted, used
	// by resume mode.
	ProcessedURLs(ctx context.Context) (map[string]struct{}, error)
}

// Store is the combined persistence contract of one backend.
type Store interface {
	SeedStore
	ResultStore
	StateStore
	Close() error
}
