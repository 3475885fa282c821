package observability

import (
	"context"
	"testing"
	"time"

	"switchboard/internal/credentials"
	"switchboard/internal/engine"
	"switchboard/internal/modellist"
)

func TestDisabledCollectorIsInert(t *testing.T) {
	collector, err := NewCollector(MetricsConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	// Every callback must be safe with nil instruments.
	collector.PassStarted(1, engine.TriggerRefresh, engine.Session{})
	collector.PassFinished(1, engine.PassCommitted, time.Millisecond)
	if err := collector.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	gate := credentials.StaticGate{"openai": true}
	if got := collector.InstrumentGate(gate); got == nil {
		t.Fatalf("InstrumentGate returned nil")
	} else if !got.Check(context.Background(), "openai") {
		t.Fatalf("wrapped gate lost the inner answer")
	}

	inner := fixedRequester{resp: modellist.Response{Success: true, Models: []string{"m1"}}}
	wrapped := collector.InstrumentRequester(inner)
	resp := wrapped.Request(context.Background(), "openai")
	if !resp.Success || len(resp.Models) != 1 {
		t.Fatalf("wrapped requester altered the response: %+v", resp)
	}
}

func TestDisabledTracerProvider(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	ctx, span := tp.StartSpan(context.Background(), SpanResolutionPass, PassAttrs(1, "refresh", "sidepanel", 7)...)
	if ctx == nil || span == nil {
		t.Fatalf("noop tracer must still produce a span")
	}
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestPassTracerSpansPerPass(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	tracer := NewPassTracer(tp)

	session := engine.Session{TabID: 7, Interface: "sidepanel"}
	tracer.PassStarted(1, engine.TriggerSelectPlatform, session)
	tracer.PassStarted(2, engine.TriggerRefresh, session)
	if got := len(tracer.spans); got != 2 {
		t.Fatalf("open spans = %d, want one per started pass", got)
	}

	tracer.PassFinished(1, engine.PassCommitted, time.Millisecond)
	tracer.PassFinished(2, engine.PassFailed, time.Millisecond)
	if got := len(tracer.spans); got != 0 {
		t.Fatalf("open spans = %d, want all closed", got)
	}

	// A finish for an unknown generation must not panic.
	tracer.PassFinished(9, engine.PassDiscarded, time.Millisecond)

	var nilTracer *PassTracer
	nilTracer.PassStarted(1, engine.TriggerRefresh, session)
	nilTracer.PassFinished(1, engine.PassCommitted, time.Millisecond)
}

func TestUnknownExporterRejected(t *testing.T) {
	if _, err := NewTracerProvider(TracingConfig{Enabled: true, Exporter: "jaeger"}); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

type fixedRequester struct {
	resp modellist.Response
}

func (r fixedRequester) Request(context.Context, string) modellist.Response { return r.resp }
