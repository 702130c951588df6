// Package tracing wraps the OpenTelemetry SDK for instrumenting job
// execution and discovery scans. Shipping spans to a remote collector is
// left to a deployment's own otel-collector sidecar (an external
// collaborator per spec §1); this package only creates and samples spans,
// giving every component a real span to attach attributes to regardless of
// whether anything is listening downstream.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be between 0 and 1")
)

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	cfg      Config
}

var (
	globalProvider *TracerProvider
	globalMu       sync.RWMutex
)

// Init initializes the global tracer provider.
func Init(_ context.Context, cfg Config) (*TracerProvider, error) {
	if !cfg.Enable {
		log.Debug().Msg("Tracing disabled")
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracing config: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	provider := &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(cfg.ServiceName),
		cfg:      cfg,
	}

	globalMu.Lock()
	globalProvider = provider
	globalMu.Unlock()

	log.Info().
		Str("service", cfg.ServiceName).
		Float64("sample_rate", cfg.SampleRate).
		Msg("Tracing initialized")

	return provider, nil
}

// Shutdown shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	if tp == nil {
		return otel.Tracer("tncctl")
	}
	return tp.tracer
}

// GetTracer returns the global tracer.
func GetTracer() trace.Tracer {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	if p == nil {
		return otel.Tracer("tncctl")
	}
	return p.tracer
}

// IsEnabled returns whether tracing is enabled.
func IsEnabled() bool {
	globalMu.RLock()
	p := globalProvider
	globalMu.RUnlock()
	return p != nil && p.cfg.Enable
}

// StartSpan starts a new span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	trace.SpanFromContext(ctx).RecordError(err, opts...)
}

// Common attribute keys used across job and discovery spans.
var (
	AttrNetworkXpan  = attribute.Key("tncctl.network_xpan")
	AttrVerb         = attribute.Key("tncctl.verb")
	AttrJobOutcome   = attribute.Key("tncctl.job_outcome")
	AttrBorderRouter = attribute.Key("tncctl.border_router_addr")
)
