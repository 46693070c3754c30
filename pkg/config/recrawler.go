package config

import "fmt"

// RecrawlerConfig tunes the refetch pipeline.
//
// Example:
//
//	recrawler:
//	  workers: 200
//	  dns_workers: 2000
//	  timeout_ms: 5000
//	  batch_size: 5000
//	  store: sqlite
type RecrawlerConfig struct {
	// Workers is the HTTP fetch pool size. Default: 200.
	Workers int `yaml:"workers,omitempty"`

	// DNSWorkers is the DNS prefetch pool size. Default: 2000.
	DNSWorkers int `yaml:"dns_workers,omitempty"`

	// TimeoutMs is the per-request timeout. Default: 5000.
	TimeoutMs int `yaml:"timeout_ms,omitempty"`

	// BatchSize is the writer flush threshold. Default: 5000.
	BatchSize int `yaml:"batch_size,omitempty"`

	// TransportShards is the HTTP transport pool count. Default: 64.
	TransportShards int `yaml:"transport_shards,omitempty"`

	// MaxConnsPerDomain bounds concurrent requests per domain. Default: 8.
	MaxConnsPerDomain int `yaml:"max_conns_per_domain,omitempty"`

	// DomainFailThreshold kills a domain after N consecutive failures.
	// Default: 3.
	DomainFailThreshold int `yaml:"domain_fail_threshold,omitempty"`

	// Mode is the fetch mode: status, head, or full. Default: status.
	Mode string `yaml:"mode,omitempty"`

	// TwoPass probes one URL per domain before the full run.
	TwoPass bool `yaml:"two_pass,omitempty"`

	// Resume skips URLs already present in the state store.
	Resume bool `yaml:"resume,omitempty"`

	// RespectRobots fetches and honors robots.txt per domain.
	RespectRobots bool `yaml:"respect_robots,omitempty"`

	// UserAgent sent on every fetch.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Store is the result/state backend: sqlite or postgres.
	Store string `yaml:"store,omitempty"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// SetDefaults applies default values to RecrawlerConfig.
func (c *RecrawlerConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 200
	}
	if c.DNSWorkers == 0 {
		c.DNSWorkers = 2000
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 5000
	}
	if c.BatchSize == 0 {
		c.BatchSize = 5000
	}
	if c.TransportShards == 0 {
		c.TransportShards = 64
	}
	if c.MaxConnsPerDomain == 0 {
		c.MaxConnsPerDomain = 8
	}
	if c.DomainFailThreshold == 0 {
		c.DomainFailThreshold = 3
	}
	if c.Mode == "" {
		c.Mode = "status"
	}
	if c.UserAgent == "" {
		c.UserAgent = "GlimpseCrawler/1.0"
	}
	if c.Store == "" {
		c.Store = "sqlite"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/recrawl.db"
	}
}

// Validate checks the recrawler configuration.
func (c *RecrawlerConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.DNSWorkers < 1 {
		return fmt.Errorf("dns_workers must be positive")
	}
	switch c.Mode {
	case "status", "head", "full":
	default:
		return fmt.Errorf("unknown mode %q (valid: status, head, full)", c.Mode)
	}
	switch c.Store {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store %q (valid: sqlite, postgres)", c.Store)
	}
	if c.Store == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("postgres store requires postgres_dsn")
	}
	return nil
}
