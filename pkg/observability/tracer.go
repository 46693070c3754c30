package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type TracerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

func (c *TracerConfig) SetDefaults() {
	if c.SamplingRate <= 0 {
		c.SamplingRate = 0.1
	}
	if c.ServiceName == "" {
		c.ServiceName = "glimpse"
	}
}

// InitGlobalTracer installs the tracer provider. Disabled tracing gets
// a noop provider; enabled tracing samples spans and emits them through
// the slog exporter.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nil
	}
	cfg.SetDefaults()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(newLogExporter(slog.Default())),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// GetTracer returns a tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// logExporter writes finished spans to structured logs. It stands in
// for a collector-backed exporter in deployments without one.
type logExporter struct {
	logger *slog.Logger
}

func newLogExporter(logger *slog.Logger) *logExporter {
	return &logExporter{logger: logger.With("component", "tracing")}
}

func (e *logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		e.logger.Debug("span finished",
			"name", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration_ms", float64(span.EndTime().Sub(span.StartTime()).Microseconds())/1000,
			"status", span.Status().Code.String(),
		)
	}
	return nil
}

func (e *logExporter) Shutdown(ctx context.Context) error { return nil }
