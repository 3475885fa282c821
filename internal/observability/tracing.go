package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"switchboard/internal/engine"
)

// TracerProvider wraps the OpenTelemetry tracer used for resolution passes.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracerProvider builds a provider from config. Disabled tracing yields a
// noop tracer, never an error.
func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{
			tracer: noop.NewTracerProvider().Tracer("switchboard"),
		}, nil
	}

	if config.ServiceName == "" {
		config.ServiceName = "switchboard"
	}
	if config.SampleRate <= 0 || config.SampleRate > 1.0 {
		config.SampleRate = 1.0
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch config.Exporter {
	case "otlp":
		endpoint := config.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "zipkin":
		endpoint := config.ZipkinEndpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", config.Exporter, err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer("switchboard"),
	}, nil
}

// Shutdown flushes and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// StartSpan starts a span with the given attributes.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Span names.
const (
	SpanResolutionPass   = "switchboard.pass"
	SpanModelListRequest = "switchboard.modellist.request"
	SpanParameterResolve = "switchboard.params.resolve"
	SpanHTTPRequest      = "switchboard.http.request"
)

// Attribute keys.
const (
	AttrGeneration = "switchboard.generation"
	AttrTrigger    = "switchboard.trigger"
	AttrInterface  = "switchboard.interface"
	AttrTabID      = "switchboard.tab_id"
	AttrPlatform   = "switchboard.platform"
	AttrModel      = "switchboard.model"
	AttrSource     = "switchboard.source"
	AttrOutcome    = "switchboard.outcome"
	AttrError      = "switchboard.error"
)

// PassAttrs builds the attribute set for one resolution pass.
func PassAttrs(generation uint64, trigger, iface string, tabID int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrGeneration, int64(generation)),
		attribute.String(AttrTrigger, trigger),
		attribute.String(AttrInterface, iface),
		attribute.Int(AttrTabID, tabID),
	}
}

// ErrorAttrs marks a span as failed.
func ErrorAttrs(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(AttrError, true),
		attribute.String("error.message", err.Error()),
	}
}

// PassTracer opens one span per resolution pass and closes it with the
// outcome. Implements engine.PassObserver; a nil receiver or provider is a
// no-op, so wiring stays unconditional.
type PassTracer struct {
	provider *TracerProvider

	mu    sync.Mutex
	spans map[uint64]trace.Span
}

var _ engine.PassObserver = (*PassTracer)(nil)

// NewPassTracer wraps provider as a pass observer.
func NewPassTracer(provider *TracerProvider) *PassTracer {
	return &PassTracer{
		provider: provider,
		spans:    make(map[uint64]trace.Span),
	}
}

// PassStarted implements engine.PassObserver.
func (t *PassTracer) PassStarted(generation uint64, trigger engine.Trigger, session engine.Session) {
	if t == nil || t.provider == nil {
		return
	}
	_, span := t.provider.StartSpan(context.Background(), SpanResolutionPass,
		PassAttrs(generation, string(trigger), string(session.Interface), session.TabID)...)
	t.mu.Lock()
	t.spans[generation] = span
	t.mu.Unlock()
}

// PassFinished implements engine.PassObserver.
func (t *PassTracer) PassFinished(generation uint64, outcome engine.PassOutcome, took time.Duration) {
	if t == nil || t.provider == nil {
		return
	}
	t.mu.Lock()
	span, ok := t.spans[generation]
	delete(t.spans, generation)
	t.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(attribute.String(AttrOutcome, string(outcome)))
	if outcome == engine.PassFailed {
		span.SetStatus(codes.Error, "resolution pass failed")
	}
	span.End()
}
