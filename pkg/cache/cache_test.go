package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-search/glimpse/pkg/config"
	"github.com/glimpse-search/glimpse/pkg/types"
)

func testQuery(t *testing.T, text string, opts types.QueryOptions) types.Query {
	t.Helper()
	q, err := types.NewQuery(text, opts)
	require.NoError(t, err)
	return q
}

func TestFingerprintQuery(t *testing.T) {
	base := testQuery(t, "golang generics", types.QueryOptions{})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, FingerprintQuery(base, 1), FingerprintQuery(base, 1))
	})

	t.Run("case insensitive text", func(t *testing.T) {
		upper := testQuery(t, "GOLANG Generics", types.QueryOptions{})
		assert.Equal(t, FingerprintQuery(base, 1), FingerprintQuery(upper, 1))
	})

	t.Run("filter order irrelevant", func(t *testing.T) {
		a := testQuery(t, "x", types.QueryOptions{Filters: map[string]string{"a": "1", "b": "2"}})
		b := testQuery(t, "x", types.QueryOptions{Filters: map[string]string{"b": "2", "a": "1"}})
		assert.Equal(t, FingerprintQuery(a, 1), FingerprintQuery(b, 1))
	})

	t.Run("version participates", func(t *testing.T) {
		assert.NotEqual(t, FingerprintQuery(base, 1), FingerprintQuery(base, 2))
	})

	t.Run("distinct fields give distinct keys", func(t *testing.T) {
		variants := []types.Query{
			testQuery(t, "golang generics", types.QueryOptions{Page: 2}),
			testQuery(t, "golang generics", types.QueryOptions{Category: types.CategoryNews}),
			testQuery(t, "golang generics", types.QueryOptions{SafeSearch: types.SafeSearchStrict}),
			testQuery(t, "golang generics", types.QueryOptions{TimeRange: types.TimeRangeDay}),
			testQuery(t, "golang generics", types.QueryOptions{Locale: "de"}),
		}
		seen := map[Fingerprint]bool{FingerprintQuery(base, 1): true}
		for _, v := range variants {
			fp := FingerprintQuery(v, 1)
			assert.False(t, seen[fp], "collision for %+v", v)
			seen[fp] = true
		}
	})

	t.Run("hex string is 32 digits", func(t *testing.T) {
		assert.Len(t, FingerprintQuery(base, 1).String(), 32)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	fp := Fingerprint{Hi: 1, Lo: 2}
	page := &types.MergedResult{TotalResults: 42}

	t.Run("miss on empty store", func(t *testing.T) {
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, time.Minute))
		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, 42, got.TotalResults)
	})

	t.Run("expired entry is a miss", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, -time.Second))
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
		assert.Zero(t, store.Len())
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, time.Minute))
		require.NoError(t, store.Invalidate(ctx, fp))
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
	})

	t.Run("invalidate by prefix", func(t *testing.T) {
		kept := Fingerprint{Hi: 0xff00000000000000, Lo: 9}
		require.NoError(t, store.Put(ctx, fp, page, time.Minute))
		require.NoError(t, store.Put(ctx, kept, page, time.Minute))

		require.NoError(t, store.InvalidatePrefix(ctx, fp.String()[:8]))
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
		_, err = store.Get(ctx, kept)
		assert.NoError(t, err)

		require.NoError(t, store.InvalidatePrefix(ctx, ""))
		assert.Zero(t, store.Len())
	})
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.CacheConfig{Backend: "redis", RedisAddr: mr.Addr()}
	cfg.SetDefaults()
	cfg.RedisAddr = mr.Addr()

	store, err := NewRedisStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	q := testQuery(t, "weather berlin", types.QueryOptions{})
	fp := FingerprintQuery(q, cfg.Version)
	page := &types.MergedResult{
		Query:        q,
		Results:      []types.Hit{{URL: "https://example.com", Title: "Example", Score: 1.5}},
		TotalResults: 100,
		Engines:      []string{"google", "bing"},
	}

	t.Run("miss before put", func(t *testing.T) {
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
	})

	t.Run("round trip preserves page", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, time.Hour))

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, page.TotalResults, got.TotalResults)
		require.Len(t, got.Results, 1)
		assert.Equal(t, "https://example.com", got.Results[0].URL)
		assert.Equal(t, page.Engines, got.Engines)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, time.Minute))
		mr.FastForward(2 * time.Minute)
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
	})

	t.Run("corrupt value is a cache error, not a miss", func(t *testing.T) {
		require.NoError(t, mr.Set(redisKeyPrefix+fp.String(), "not snappy"))
		_, err := store.Get(ctx, fp)
		require.Error(t, err)
		assert.Equal(t, types.KindCache, types.KindOf(err))
		assert.False(t, IsMiss(err))
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, fp, page, time.Hour))
		require.NoError(t, store.Invalidate(ctx, fp))
		_, err := store.Get(ctx, fp)
		assert.True(t, IsMiss(err))
	})

	t.Run("invalidate by prefix", func(t *testing.T) {
		swept := Fingerprint{Hi: 0xaa11000000000000, Lo: 1}
		kept := Fingerprint{Hi: 0xbb22000000000000, Lo: 2}
		require.NoError(t, store.Put(ctx, swept, page, time.Hour))
		require.NoError(t, store.Put(ctx, kept, page, time.Hour))

		require.NoError(t, store.InvalidatePrefix(ctx, "aa11"))
		_, err := store.Get(ctx, swept)
		assert.True(t, IsMiss(err))
		_, err = store.Get(ctx, kept)
		assert.NoError(t, err)
	})
}

func TestTTLFor(t *testing.T) {
	var cfg config.CacheConfig
	cfg.SetDefaults()

	assert.Equal(t, time.Hour, TTLFor(cfg, types.CategoryGeneral))
	assert.Equal(t, 15*time.Minute, TTLFor(cfg, types.CategoryImages))
	assert.Equal(t, 5*time.Minute, TTLFor(cfg, types.CategoryNews))
}

func TestOpen(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		store, err := Open(config.CacheConfig{Backend: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(config.CacheConfig{Backend: "memcached"})
		require.Error(t, err)
		assert.Equal(t, types.KindConfig, types.KindOf(err))
	})
}
