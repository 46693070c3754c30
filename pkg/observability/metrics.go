package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Metrics is the recording contract. Call sites depend on this
// interface, never on the exporter wiring.
type Metrics interface {
	RecordEngineRequest(ctx context.Context, engine string, duration time.Duration, err error)
	RecordEngineHits(ctx context.Context, engine string, hits int)
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordSearch(ctx context.Context, category string, duration time.Duration, results int)
	RecordRecrawlFetch(ctx context.Context, outcome string)
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
	Handler() http.Handler
}

// InitMetrics builds the prometheus-backed metric set. When disabled it
// returns an empty PrometheusMetrics whose record methods are no-ops.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("glimpse")

	engineDuration, err := meter.Float64Histogram(
		"glimpse_engine_request_duration_seconds",
		metric.WithDescription("Upstream engine request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine duration histogram: %w", err)
	}

	engineRequests, err := meter.Int64Counter(
		"glimpse_engine_requests",
		metric.WithDescription("Total upstream engine requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine requests counter: %w", err)
	}

	engineErrors, err := meter.Int64Counter(
		"glimpse_engine_errors",
		metric.WithDescription("Total failed upstream engine requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine errors counter: %w", err)
	}

	engineHits, err := meter.Int64Counter(
		"glimpse_engine_hits",
		metric.WithDescription("Total hits returned by upstream engines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine hits counter: %w", err)
	}

	cacheHits, err := meter.Int64Counter(
		"glimpse_cache_hits",
		metric.WithDescription("Result cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter(
		"glimpse_cache_misses",
		metric.WithDescription("Result cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	searchDuration, err := meter.Float64Histogram(
		"glimpse_search_duration_seconds",
		metric.WithDescription("End-to-end search duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search duration histogram: %w", err)
	}

	searchResults, err := meter.Int64Histogram(
		"glimpse_search_results",
		metric.WithDescription("Merged result count per search"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search results histogram: %w", err)
	}

	recrawlFetches, err := meter.Int64Counter(
		"glimpse_recrawl_fetches",
		metric.WithDescription("Recrawler fetches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recrawl fetches counter: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"glimpse_http_requests",
		metric.WithDescription("HTTP requests by method, route, and status class"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"glimpse_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return &PrometheusMetrics{
		registry:       registry,
		provider:       provider,
		engineDuration: engineDuration,
		engineRequests: engineRequests,
		engineErrors:   engineErrors,
		engineHits:     engineHits,
		cacheHits:      cacheHits,
		cacheMisses:    cacheMisses,
		searchDuration: searchDuration,
		searchResults:  searchResults,
		recrawlFetches: recrawlFetches,
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
	}, nil
}

// PrometheusMetrics implements Metrics over otel instruments exported to
// a private prometheus registry. The zero value records nothing.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	engineDuration metric.Float64Histogram
	engineRequests metric.Int64Counter
	engineErrors   metric.Int64Counter
	engineHits     metric.Int64Counter

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter

	searchDuration metric.Float64Histogram
	searchResults  metric.Int64Histogram

	recrawlFetches metric.Int64Counter

	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
}

func (m *PrometheusMetrics) RecordEngineRequest(ctx context.Context, engine string, duration time.Duration, err error) {
	if m == nil || m.engineRequests == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("engine", engine))
	m.engineRequests.Add(ctx, 1, attrs)
	m.engineDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.engineErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordEngineHits(ctx context.Context, engine string, hits int) {
	if m == nil || m.engineHits == nil {
		return
	}
	m.engineHits.Add(ctx, int64(hits),
		metric.WithAttributes(attribute.String("engine", engine)))
}

func (m *PrometheusMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil || m.cacheHits == nil {
		return
	}
	if hit {
		m.cacheHits.Add(ctx, 1)
	} else {
		m.cacheMisses.Add(ctx, 1)
	}
}

func (m *PrometheusMetrics) RecordSearch(ctx context.Context, category string, duration time.Duration, results int) {
	if m == nil || m.searchDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("category", category))
	m.searchDuration.Record(ctx, duration.Seconds(), attrs)
	m.searchResults.Record(ctx, int64(results), attrs)
}

func (m *PrometheusMetrics) RecordRecrawlFetch(ctx context.Context, outcome string) {
	if m == nil || m.recrawlFetches == nil {
		return
	}
	m.recrawlFetches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", statusClass(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("method", method), attribute.String("route", route)))
}

// Handler serves the scrape endpoint. Disabled metrics answer 503 so
// scrapers notice the endpoint is off rather than silently empty.
func (m *PrometheusMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes the meter provider.
func (m *PrometheusMetrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func statusClass(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
