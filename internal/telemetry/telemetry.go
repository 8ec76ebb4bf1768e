// Package telemetry instruments resolutions with OpenTelemetry spans and
// Prometheus metrics. Both are optional; a zero Config yields no-op
// instrumentation.
package telemetry

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/toutaio/nasc-resolver/registry"
)

const (
	// SpanResolve is the name of the span covering a top-level resolution.
	SpanResolve = "nasc.resolve"

	AttrContract = "nasc.contract"
	AttrScope    = "nasc.scope"
	AttrFound    = "nasc.found"

	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"

	defaultNamespace = "nasc"
)

// Config selects the tracer and metrics registerer.
type Config struct {
	// Tracer creates resolution spans. Nil disables tracing.
	Tracer trace.Tracer

	// Registerer receives the resolution metrics. Nil disables metrics.
	Registerer prometheus.Registerer

	// Namespace prefixes metric names. Defaults to "nasc".
	Namespace string
}

// Instrumentation records resolution spans and metrics.
type Instrumentation struct {
	tracer      trace.Tracer
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	singletons  *prometheus.CounterVec
}

// New builds the instrumentation described by cfg. Collectors already
// registered by another container on the same registerer are reused.
func New(cfg Config) (*Instrumentation, error) {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	inst := &Instrumentation{tracer: tracer}

	if cfg.Registerer == nil {
		return inst, nil
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	var err error
	inst.resolutions, err = register(cfg.Registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of top-level resolutions by outcome",
		},
		[]string{"outcome"},
	))
	if err != nil {
		return nil, err
	}

	inst.duration, err = register(cfg.Registerer, prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Latency of top-level resolutions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
	))
	if err != nil {
		return nil, err
	}

	inst.singletons, err = register(cfg.Registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singletons_created_total",
			Help:      "Total number of singleton instances built, by entry kind",
		},
		[]string{"kind"},
	))
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// StartResolve opens a span for the resolution of contract in scope and
// returns the function that closes it and records the outcome.
func (i *Instrumentation) StartResolve(contract reflect.Type, scopeID string) func(found bool, err error) {
	if i == nil {
		return func(bool, error) {}
	}

	start := time.Now()
	_, span := i.tracer.Start(context.Background(), SpanResolve,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrContract, typeName(contract)),
			attribute.String(AttrScope, scopeID),
		),
	)

	return func(found bool, err error) {
		defer span.End()

		outcome := OutcomeResolved
		switch {
		case err != nil:
			outcome = OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case !found:
			outcome = OutcomeNotFound
			span.SetStatus(codes.Ok, "")
		default:
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.Bool(AttrFound, found))

		if i.resolutions != nil {
			i.resolutions.WithLabelValues(outcome).Inc()
		}
		if i.duration != nil {
			i.duration.Observe(time.Since(start).Seconds())
		}
	}
}

// SingletonCreated counts a singleton construction. It is installed as the
// registry create hook.
func (i *Instrumentation) SingletonCreated(e *registry.Entry) {
	if i == nil || i.singletons == nil {
		return
	}
	i.singletons.WithLabelValues(e.Kind.String()).Inc()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
