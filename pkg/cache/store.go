package cache

import (
	"context"
	"time"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

// Store is the cache backend contract. A miss is ErrMiss, never a nil
// result with nil error. Backend failures surface as CacheError; the
// caller treats them as misses.
type Store interface {
	// Get returns the cached result page for fp.
	Get(ctx context.Context, fp Fingerprint) (*types.MergedResult, error)

	// Put stores result under fp for ttl.
	Put(ctx context.Context, fp Fingerprint, result *types.MergedResult, ttl time.Duration) error

	// Invalidate drops the entry for fp if present.
	Invalidate(ctx context.Context, fp Fingerprint) error

	// InvalidatePrefix drops every entry whose hex fingerprint starts
	// with prefix. An empty prefix flushes the whole namespace.
	InvalidatePrefix(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}

// ErrMiss is returned by Get when no live entry exists.
var ErrMiss = types.NewError(types.KindNotFound, "cache miss")

// IsMiss reports whether err is a cache miss. Backend errors
// (KindCache) are not misses but callers degrade them to one.
func IsMiss(err error) bool {
	return err != nil && types.KindOf(err) == types.KindNotFound
}

// TTLFor returns the configured TTL for a category. Image results age
// slower than news; everything else uses the default.
func TTLFor(cfg config.CacheConfig, cat types.Category) time.Duration {
	switch cat {
	case types.CategoryImages, types.CategoryVideos:
		return cfg.ImagesTTL()
	case types.CategoryNews:
		return cfg.NewsTTL()
	default:
		return cfg.DefaultTTL()
	}
}

// Open builds the configured store backend.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, types.NewError(types.KindConfig, "unknown cache backend "+cfg.Backend)
	}
}
