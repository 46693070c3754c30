package config

import (
	"fmt"
	"time"
)

// CacheConfig configures the result cache.
//
// Example:
//
//	cache:
//	  backend: redis
//	  redis_addr: localhost:6379
//	  ttl:
//	    default: 1h
//	    images: 15m
//	    news: 5m
type CacheConfig struct {
	// Backend is "redis" or "memory". Default: memory
	Backend string `yaml:"backend,omitempty"`

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// RedisDB selects the Redis logical database.
	RedisDB int `yaml:"redis_db,omitempty"`

	// RedisPassword authenticates against Redis, if set.
	RedisPassword string `yaml:"redis_password,omitempty"`

	// TTL holds per-category expirations.
	TTL CacheTTLConfig `yaml:"ttl"`

	// Version is the compiled-in cache format version. Entries stored
	// under an older version are treated as misses.
	Version int `yaml:"version,omitempty"`
}

// CacheTTLConfig holds per-category TTLs in Go duration syntax.
type CacheTTLConfig struct {
	Default string `yaml:"default,omitempty"`
	Images  string `yaml:"images,omitempty"`
	News    string `yaml:"news,omitempty"`
}

// SetDefaults applies default values to CacheConfig.
func (c *CacheConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.TTL.Default == "" {
		c.TTL.Default = "1h"
	}
	if c.TTL.Images == "" {
		c.TTL.Images = "15m"
	}
	if c.TTL.News == "" {
		c.TTL.News = "5m"
	}
	if c.Version == 0 {
		c.Version = 1
	}
}

// Validate checks the cache configuration.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown cache backend %q (valid: redis, memory)", c.Backend)
	}
	for name, v := range map[string]string{
		"ttl.default": c.TTL.Default,
		"ttl.images":  c.TTL.Images,
		"ttl.news":    c.TTL.News,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s duration %q", name, v)
		}
	}
	return nil
}

// DefaultTTL returns the parsed default TTL.
func (c *CacheConfig) DefaultTTL() time.Duration { return mustDuration(c.TTL.Default, time.Hour) }

// ImagesTTL returns the parsed TTL for image result pages.
func (c *CacheConfig) ImagesTTL() time.Duration {
	return mustDuration(c.TTL.Images, 15*time.Minute)
}

// NewsTTL returns the parsed TTL for news result pages.
func (c *CacheConfig) NewsTTL() time.Duration { return mustDuration(c.TTL.News, 5*time.Minute) }

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
