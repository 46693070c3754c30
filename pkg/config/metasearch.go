package config

import "fmt"

// MetaSearchConfig tunes the fan-out coordinator.
//
// Example:
//
//	metasearch:
//	  request_budget_ms: 10000
//	  early_return_ms: 300
//	  min_engines: 2
type MetaSearchConfig struct {
	// RequestBudgetMs is the global wall-clock budget for one request.
	RequestBudgetMs int `yaml:"request_budget_ms,omitempty"`

	// EarlyReturnMs is how long the coordinator keeps collecting after
	// the first result once MinEngines have reported.
	EarlyReturnMs int `yaml:"early_return_ms,omitempty"`

	// MinEngines is the minimum engine count for the early-return path.
	MinEngines int `yaml:"min_engines,omitempty"`

	// Hedged enables request hedging for scraper engines: a second
	// identical request is fired if the first has not answered within
	// the hedge delay.
	Hedged bool `yaml:"hedged,omitempty"`

	// HedgeDelayMs is the hedging delay. Default: 500.
	HedgeDelayMs int `yaml:"hedge_delay_ms,omitempty"`

	// BreakerFailures is the consecutive-failure count that opens an
	// engine's circuit breaker. 0 disables breakers.
	BreakerFailures int `yaml:"breaker_failures,omitempty"`

	// PerHostRPS limits outbound requests per upstream host. 0 disables.
	PerHostRPS float64 `yaml:"per_host_rps,omitempty"`
}

// SetDefaults applies default values to MetaSearchConfig.
func (c *MetaSearchConfig) SetDefaults() {
	if c.RequestBudgetMs == 0 {
		c.RequestBudgetMs = 10000
	}
	if c.EarlyReturnMs == 0 {
		c.EarlyReturnMs = 300
	}
	if c.MinEngines == 0 {
		c.MinEngines = 2
	}
	if c.HedgeDelayMs == 0 {
		c.HedgeDelayMs = 500
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
}

// Validate checks the metasearch configuration.
func (c *MetaSearchConfig) Validate() error {
	if c.RequestBudgetMs < 100 {
		return fmt.Errorf("request_budget_ms too small: %d", c.RequestBudgetMs)
	}
	if c.EarlyReturnMs < 0 {
		return fmt.Errorf("early_return_ms must not be negative")
	}
	if c.MinEngines < 1 {
		return fmt.Errorf("min_engines must be positive")
	}
	if c.PerHostRPS < 0 {
		return fmt.Errorf("per_host_rps must not be negative")
	}
	return nil
}
