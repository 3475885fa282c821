// Package observability instruments the resolution engine: pass counters and
// durations exported to Prometheus through the OpenTelemetry metrics bridge,
// and one trace span per resolution pass via OTLP or Zipkin. Everything here
// is optional; a disabled collector or tracer degrades to no-ops so the
// engine never depends on an exporter being reachable.
package observability

// Config holds the observability section of the runtime configuration.
type Config struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Exporter       string  `yaml:"exporter"` // otlp, zipkin
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `yaml:"zipkin_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"` // 0.0 to 1.0
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
}

// DefaultConfig disables both subsystems; the daemon enables them from its
// runtime configuration.
func DefaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{
			Enabled:        false,
			PrometheusPort: 9090,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "otlp",
			OTLPEndpoint: "localhost:4318",
			SampleRate:   1.0,
			ServiceName:  "switchboard",
		},
	}
}
