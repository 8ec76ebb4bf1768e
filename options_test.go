package nasc

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/toutaio/nasc-resolver/config"
	"github.com/toutaio/nasc-resolver/internal/logging"
	"github.com/toutaio/nasc-resolver/internal/telemetry"
)

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewStructuredLogger(&buf, "nasc", "debug", logging.FormatJSON)

	container := New(WithLogger(logger))
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))
	_, _ = Resolve[Database](container.Root())

	out := buf.String()
	assert.Contains(t, out, `"msg":"service registered"`)
	assert.Contains(t, out, `"msg":"contract not registered"`)
	assert.Contains(t, out, `"module":"nasc"`)
}

func TestWithTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	container := New(WithTracer(tp.Tracer("nasc-test")))
	require.NoError(t, container.Bind((*Logger)(nil), &ConsoleLogger{}))
	require.NoError(t, container.BindConstructor((*Service)(nil), NewServiceImpl, WithDefault(1, 3)))

	scope := container.CreateScope()
	_, err := Resolve[Service](scope)
	require.NoError(t, err)

	// Nested dependencies do not open their own spans
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, telemetry.SpanResolve, spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.AttrScope, scope.ID()))
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.AttrContract, TypeOf[Service]().String()))
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	container := New(WithMetrics(reg), WithMetricsNamespace("di"))
	require.NoError(t, container.Singleton((*Database)(nil), &MockDB{}))

	MustResolve[Database](container.Root())
	MustResolve[Database](container.Root())
	_, _ = Resolve[Logger](container.Root())

	count, err := testutil.GatherAndCount(reg, "di_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // resolved and not_found series

	count, err = testutil.GatherAndCount(reg, "di_singletons_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second container on the same registerer reuses the collectors
	assert.NotPanics(t, func() { New(WithMetrics(reg), WithMetricsNamespace("di")) })
}

func TestWithConfig(t *testing.T) {
	t.Setenv("NASC_LOG_LEVEL", "debug")
	t.Setenv("NASC_LOG_FORMAT", "text")
	t.Setenv("NASC_TRACING", "true")
	t.Setenv("NASC_METRICS", "false")

	cfg := config.Load(t.TempDir() + "/missing.env")
	container := New(WithConfig(cfg))
	require.NotNil(t, container)
	assert.NotNil(t, container.tracer)
	assert.Nil(t, container.metrics)

	assert.NotNil(t, New(WithConfig(nil)))
}
