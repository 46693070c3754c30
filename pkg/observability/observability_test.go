package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsDisabled(t *testing.T) {
	m, err := InitMetrics(context.Background(), MetricsConfig{Enabled: false})
	require.NoError(t, err)

	// Recording on the zero-value set must be a no-op, not a panic.
	ctx := context.Background()
	m.RecordEngineRequest(ctx, "wiki", 10*time.Millisecond, nil)
	m.RecordCacheLookup(ctx, true)
	m.RecordSearch(ctx, "general", time.Millisecond, 5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsScrape(t *testing.T) {
	ctx := context.Background()
	m, err := InitMetrics(ctx, MetricsConfig{Enabled: true})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	m.RecordEngineRequest(ctx, "wiki", 20*time.Millisecond, nil)
	m.RecordEngineRequest(ctx, "stract", 50*time.Millisecond, errors.New("boom"))
	m.RecordEngineHits(ctx, "wiki", 7)
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordSearch(ctx, "general", 80*time.Millisecond, 12)
	m.RecordRecrawlFetch(ctx, "ok")
	m.RecordHTTPRequest(ctx, http.MethodGet, "/search", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "glimpse_engine_requests")
	assert.Contains(t, out, "glimpse_engine_errors")
	assert.Contains(t, out, "glimpse_cache_hits")
	assert.Contains(t, out, "glimpse_cache_misses")
	assert.Contains(t, out, "glimpse_search_duration_seconds")
	assert.Contains(t, out, "glimpse_recrawl_fetches")
	assert.Contains(t, out, "glimpse_http_requests")
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(Config{
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracerConfig{Enabled: false},
	})
	require.NoError(t, mgr.Initialize(ctx))

	tracer := mgr.GetTracer("test")
	_, span := tracer.Start(ctx, "op")
	span.End()

	mgr.GetMetrics().RecordCacheLookup(ctx, true)
	require.NoError(t, mgr.Shutdown(ctx))
}

func TestManagerBeforeInitialize(t *testing.T) {
	mgr := NewManager(Config{})

	// Safe to use before Initialize.
	mgr.GetMetrics().RecordCacheLookup(context.Background(), false)
	_, span := mgr.GetTracer("early").Start(context.Background(), "op")
	span.End()
}

func TestNoopManager(t *testing.T) {
	mgr := NoopManager()
	mgr.GetMetrics().RecordEngineHits(context.Background(), "wiki", 1)

	rec := httptest.NewRecorder()
	mgr.GetMetrics().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, mgr.Shutdown(context.Background()))
}

func TestTracerEnabled(t *testing.T) {
	ctx := context.Background()
	tp, err := InitGlobalTracer(ctx, TracerConfig{Enabled: true, SamplingRate: 1.0})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(ctx, "search")
	span.End()

	if sp, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		require.NoError(t, sp.Shutdown(ctx))
	}
}
