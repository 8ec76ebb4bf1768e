package nasc

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/toutaio/nasc-resolver/config"
	"github.com/toutaio/nasc-resolver/internal/logging"
)

// Option is a function that configures a Nasc container.
type Option func(*Nasc) error

// WithLogger sets the structured logger used for registration and resolution
// events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Nasc) error {
		if logger != nil {
			n.logger = logger
		}
		return nil
	}
}

// WithDebug logs registration, selection and resolution events to stderr at
// debug level.
func WithDebug() Option {
	return func(n *Nasc) error {
		n.logger = logging.NewStructuredLogger(nil, "nasc", "debug", logging.FormatText)
		return nil
	}
}

// WithTracer records one span per top-level resolution.
func WithTracer(tracer trace.Tracer) Option {
	return func(n *Nasc) error {
		n.tracer = tracer
		return nil
	}
}

// WithMetrics registers resolution metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(n *Nasc) error {
		n.metrics = reg
		return nil
	}
}

// WithMetricsNamespace overrides the metric name prefix.
func WithMetricsNamespace(namespace string) Option {
	return func(n *Nasc) error {
		n.metricsNamespace = namespace
		return nil
	}
}

// WithConfig applies a configuration loaded by the config package. Tracing
// uses the global OpenTelemetry tracer provider and metrics the default
// Prometheus registerer.
func WithConfig(cfg *config.Config) Option {
	return func(n *Nasc) error {
		if cfg == nil {
			return nil
		}
		n.logger = logging.NewStructuredLogger(nil, cfg.Log.Module, cfg.Log.Level, logging.Format(cfg.Log.Format))
		if cfg.Telemetry.Tracing {
			n.tracer = otel.Tracer(cfg.Telemetry.TracerName)
		}
		if cfg.Telemetry.Metrics {
			n.metrics = prometheus.DefaultRegisterer
			n.metricsNamespace = cfg.Telemetry.Namespace
		}
		return nil
	}
}
