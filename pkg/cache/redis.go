package cache

import (
	"context"
	"errors"
	"time"

	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore persists result pages in Redis. Values are JSON compressed
// with snappy; result pages are large and highly repetitive, so the
// cheap block compression pays for itself on the wire.
type RedisStore struct {
	client *redis.Client
}

const redisKeyPrefix = "glimpse:result:"

// NewRedisStore connects to the configured Redis server.
func NewRedisStore(cfg config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.WrapError(types.KindCache, "redis ping", err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the cached page for fp, ErrMiss if absent, or a
// CacheError on backend or decode failure.
func (r *RedisStore) Get(ctx context.Context, fp Fingerprint) (*types.MergedResult, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+fp.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, types.WrapError(types.KindCache, "redis get", err)
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, types.WrapError(types.KindCache, "snappy decode", err)
	}
	var result types.MergedResult
	if err := json.Unmarshal(decoded, &result); err != nil {
		return nil, types.WrapError(types.KindCache, "unmarshal cached result", err)
	}
	return &result, nil
}

// Put stores result under fp with ttl.
func (r *RedisStore) Put(ctx context.Context, fp Fingerprint, result *types.MergedResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return types.WrapError(types.KindCache, "marshal result", err)
	}
	compressed := snappy.Encode(nil, raw)
	if err := r.client.Set(ctx, redisKeyPrefix+fp.String(), compressed, ttl).Err(); err != nil {
		return types.WrapError(types.KindCache, "redis set", err)
	}
	return nil
}

// Invalidate drops the entry for fp.
func (r *RedisStore) Invalidate(ctx context.Context, fp Fingerprint) error {
	if err := r.client.Del(ctx, redisKeyPrefix+fp.String()).Err(); err != nil {
		return types.WrapError(types.KindCache, "redis del", err)
	}
	return nil
}

// InvalidatePrefix deletes every key under the result namespace whose
// fingerprint starts with prefix, walking the keyspace with SCAN so
// large flushes never block the server.
func (r *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	pattern := redisKeyPrefix + prefix + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 512).Result()
		if err != nil {
			return types.WrapError(types.KindCache, "redis scan", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return types.WrapError(types.KindCache, "redis del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the underlying client.
func (r *RedisStore) Close() error { return r.client.Close() }
