// Package config defines the yaml configuration tree and its loader.
//
// Every section follows the same discipline: a struct with yaml tags,
// a SetDefaults method applying zero-value defaults, and a Validate
// method returning a descriptive error for the first invalid field.
package config

import (
	"fmt"

	"github.com/glimpse-search/glimpse/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Logger        LoggerConfig         `yaml:"logger"`
	Cache         CacheConfig          `yaml:"cache"`
	MetaSearch    MetaSearchConfig     `yaml:"metasearch"`
	Engines       EnginesConfig        `yaml:"engines"`
	Recrawler     RecrawlerConfig      `yaml:"recrawler"`
	FTS           FTSConfig            `yaml:"fts"`
	Instant       InstantConfig        `yaml:"instant"`
	Observability observability.Config `yaml:"observability"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Logger.SetDefaults()
	c.Cache.SetDefaults()
	c.MetaSearch.SetDefaults()
	c.Engines.SetDefaults()
	c.Recrawler.SetDefaults()
	c.FTS.SetDefaults()
	c.Instant.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"logger", c.Logger.Validate},
		{"cache", c.Cache.Validate},
		{"metasearch", c.MetaSearch.Validate},
		{"engines", c.Engines.Validate},
		{"recrawler", c.Recrawler.Validate},
		{"fts", c.FTS.Validate},
		{"instant", c.Instant.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// Default returns a fully-defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host to bind. Default: 0.0.0.0
	Host string `yaml:"host,omitempty"`

	// Port to listen on. Default: 8787
	Port int `yaml:"port,omitempty"`

	// ReadTimeout / WriteTimeout in Go duration syntax. Defaults: 15s / 30s.
	ReadTimeout  string `yaml:"read_timeout,omitempty"`
	WriteTimeout string `yaml:"write_timeout,omitempty"`

	// RateLimit is the per-client request budget per minute. 0 disables.
	RateLimit int `yaml:"rate_limit,omitempty"`
}

// SetDefaults applies default values to ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8787
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "15s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "30s"
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

// InstantConfig configures the instant-answer services.
type InstantConfig struct {
	// SuggestLimit caps the suggestions returned per query. Default: 8.
	SuggestLimit int `yaml:"suggest_limit,omitempty"`

	// DataDir holds the sqlite tables for bangs, suggest history,
	// dictionary, currency rates, and knowledge entities.
	DataDir string `yaml:"data_dir,omitempty"`
}

// SetDefaults applies default values to InstantConfig.
func (c *InstantConfig) SetDefaults() {
	if c.SuggestLimit == 0 {
		c.SuggestLimit = 8
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

// Validate checks the instant configuration.
func (c *InstantConfig) Validate() error {
	if c.SuggestLimit < 1 {
		return fmt.Errorf("suggest_limit must be positive")
	}
	return nil
}
