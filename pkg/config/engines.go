package config

import "fmt"

// EngineConfig overrides a single engine's registration defaults.
type EngineConfig struct {
	// Enabled toggles the engine. Nil means keep the registration default.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Weight scales the engine's contribution to merged scores (0–1.5).
	Weight float64 `yaml:"weight,omitempty"`

	// TimeoutMs overrides the per-engine request timeout.
	TimeoutMs int `yaml:"timeout_ms,omitempty"`
}

// EnginesConfig maps engine name to its overrides.
//
// Example:
//
//	engines:
//	  google:
//	    weight: 1.0
//	  bing:
//	    weight: 0.9
//	    timeout_ms: 4000
//	  duckduckgo:
//	    enabled: false
type EnginesConfig map[string]EngineConfig

// SetDefaults is a no-op; absent engines keep their registration defaults.
func (c *EnginesConfig) SetDefaults() {
	if *c == nil {
		*c = make(EnginesConfig)
	}
}

// Validate checks every engine override.
func (c EnginesConfig) Validate() error {
	for name, ec := range c {
		if ec.Weight < 0 || ec.Weight > 1.5 {
			return fmt.Errorf("engine %q: weight %v out of range [0, 1.5]", name, ec.Weight)
		}
		if ec.TimeoutMs < 0 {
			return fmt.Errorf("engine %q: timeout_ms must not be negative", name)
		}
	}
	return nil
}
