// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "nodesel"

type (
	// TracingConfig selects where resolution spans are exported.
	TracingConfig struct {
		// Endpoint is an OTLP/HTTP collector address. Empty disables export.
		Endpoint string
		Insecure bool
		// SampleRate is clamped to [0, 1]. Zero samples nothing.
		SampleRate     float64
		ServiceVersion string
		// Exporter replaces the OTLP exporter; used by tests.
		Exporter sdktrace.SpanExporter
	}

	// Tracing owns the tracer provider built by SetupTracing.
	Tracing struct {
		provider trace.TracerProvider
		shutdown func(context.Context) error
	}
)

// SetupTracing builds a tracer provider for cfg. When neither an endpoint nor
// an exporter is configured, the returned Tracing hands out no-op tracers.
func SetupTracing(ctx context.Context, cfg TracingConfig) (*Tracing, error) {
	exporter := cfg.Exporter
	if exporter == nil && cfg.Endpoint == "" {
		return &Tracing{
			provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	if exporter == nil {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
		if cfg.Insecure || strings.HasPrefix(cfg.Endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		var err error
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	return &Tracing{provider: tp, shutdown: tp.Shutdown}, nil
}

// Tracer returns the tracer used around resolutions.
func (t *Tracing) Tracer() trace.Tracer {
	return t.provider.Tracer("github.com/nodesel/nodesel/internal/resolver")
}

// Shutdown flushes pending spans. It is safe to call more than once.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	err := t.shutdown(ctx)
	t.shutdown = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
