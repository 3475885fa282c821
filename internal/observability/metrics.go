package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"switchboard/internal/async"
	"switchboard/internal/credentials"
	"switchboard/internal/engine"
	"switchboard/internal/logging"
	"switchboard/internal/modellist"
)

// Collector owns the engine's metric instruments. A disabled collector (or
// the zero value) keeps every instrument nil and every method a no-op, so
// callers never branch on whether metrics are on.
type Collector struct {
	meter  metric.Meter
	logger logging.Logger

	passesStarted  metric.Int64Counter
	passesFinished metric.Int64Counter
	passDuration   metric.Float64Histogram

	credentialChecks  metric.Int64Counter
	modelListRequests metric.Int64Counter
	modelListDuration metric.Float64Histogram

	prometheusServer *http.Server
}

var _ engine.PassObserver = (*Collector)(nil)

// NewCollector builds the instrument set and, when a port is configured,
// starts the Prometheus scrape endpoint.
func NewCollector(config MetricsConfig, logger logging.Logger) (*Collector, error) {
	logger = logging.OrNop(logger)
	if !config.Enabled {
		return &Collector{logger: logger}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("switchboard")

	passesStarted, err := meter.Int64Counter(
		"switchboard.passes.started",
		metric.WithDescription("Resolution passes started"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create passes.started counter: %w", err)
	}
	passesFinished, err := meter.Int64Counter(
		"switchboard.passes.finished",
		metric.WithDescription("Resolution passes finished, by outcome"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create passes.finished counter: %w", err)
	}
	passDuration, err := meter.Float64Histogram(
		"switchboard.pass.duration",
		metric.WithDescription("Resolution pass duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pass.duration histogram: %w", err)
	}
	credentialChecks, err := meter.Int64Counter(
		"switchboard.credential.checks",
		metric.WithDescription("Credential gate checks, by platform and result"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create credential.checks counter: %w", err)
	}
	modelListRequests, err := meter.Int64Counter(
		"switchboard.modellist.requests",
		metric.WithDescription("Model list requests, by platform and result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create modellist.requests counter: %w", err)
	}
	modelListDuration, err := meter.Float64Histogram(
		"switchboard.modellist.duration",
		metric.WithDescription("Model list request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create modellist.duration histogram: %w", err)
	}

	collector := &Collector{
		meter:             meter,
		logger:            logger,
		passesStarted:     passesStarted,
		passesFinished:    passesFinished,
		passDuration:      passDuration,
		credentialChecks:  credentialChecks,
		modelListRequests: modelListRequests,
		modelListDuration: modelListDuration,
	}

	if config.PrometheusPort > 0 {
		collector.startPrometheusServer(config.PrometheusPort)
	}
	return collector, nil
}

func (c *Collector) startPrometheusServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())
	c.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	async.Go(c.logger, "prometheus-server", func() {
		c.logger.Info("prometheus metrics listening on :%d", port)
		if err := c.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("prometheus server: %v", err)
		}
	})
}

// Shutdown stops the scrape endpoint.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c.prometheusServer != nil {
		return c.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// PassStarted implements engine.PassObserver.
func (c *Collector) PassStarted(generation uint64, trigger engine.Trigger, session engine.Session) {
	if c == nil || c.passesStarted == nil {
		return
	}
	c.passesStarted.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("trigger", string(trigger)),
		attribute.String("interface", string(session.Interface)),
	))
}

// PassFinished implements engine.PassObserver.
func (c *Collector) PassFinished(generation uint64, outcome engine.PassOutcome, took time.Duration) {
	if c == nil || c.passesFinished == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	ctx := context.Background()
	c.passesFinished.Add(ctx, 1, attrs)
	c.passDuration.Record(ctx, took.Seconds(), attrs)
}

// InstrumentGate wraps gate so every check is counted by platform and
// result. A collector without instruments returns gate unchanged.
func (c *Collector) InstrumentGate(gate credentials.Gate) credentials.Gate {
	if c == nil || c.credentialChecks == nil || gate == nil {
		return gate
	}
	return &instrumentedGate{inner: gate, counter: c.credentialChecks}
}

type instrumentedGate struct {
	inner   credentials.Gate
	counter metric.Int64Counter
}

func (g *instrumentedGate) Check(ctx context.Context, platformID string) bool {
	allowed := g.inner.Check(ctx, platformID)
	g.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platformID),
		attribute.Bool("allowed", allowed),
	))
	return allowed
}

// InstrumentRequester wraps a model-list requester so request counts and
// latencies are recorded by platform and success.
func (c *Collector) InstrumentRequester(inner modellist.Requester) modellist.Requester {
	if c == nil || c.modelListRequests == nil || inner == nil {
		return inner
	}
	return &instrumentedRequester{
		inner:    inner,
		counter:  c.modelListRequests,
		duration: c.modelListDuration,
	}
}

type instrumentedRequester struct {
	inner    modellist.Requester
	counter  metric.Int64Counter
	duration metric.Float64Histogram
}

func (r *instrumentedRequester) Request(ctx context.Context, platformID string) modellist.Response {
	start := time.Now()
	resp := r.inner.Request(ctx, platformID)
	attrs := metric.WithAttributes(
		attribute.String("platform", platformID),
		attribute.Bool("success", resp.Success),
	)
	r.counter.Add(ctx, 1, attrs)
	r.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	return resp
}
