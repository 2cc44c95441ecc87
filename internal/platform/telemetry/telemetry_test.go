package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"cpfregistry/internal/platform/config"
)

func TestNewWithoutEndpointRecordsLocally(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := New(context.Background(), config.TelemetryConfig{SampleRatio: 1}, WithSpanProcessor(recorder))
	require.NoError(t, err)
	assert.False(t, p.Exporting)

	_, span := p.Tracer().Start(context.Background(), "cpf.Register")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "cpf.Register", ended[0].Name())
	assert.Equal(t, InstrumentationName, ended[0].InstrumentationScope().Name)

	var service string
	for _, kv := range ended[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "cpf-registry", service)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewHonoursSampleRatio(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := New(context.Background(), config.TelemetryConfig{SampleRatio: 0}, WithSpanProcessor(recorder))
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "cpf.List")
	span.End()
	assert.Empty(t, recorder.Ended())
}

func TestNewWithEndpoint(t *testing.T) {
	p, err := New(context.Background(), config.TelemetryConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 1,
	})
	require.NoError(t, err)
	assert.True(t, p.Exporting)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNewRejectsMalformedEndpoint(t *testing.T) {
	for _, endpoint := range []string{"http://", "http://[invalid"} {
		_, err := New(context.Background(), config.TelemetryConfig{Endpoint: endpoint, SampleRatio: 1})
		assert.Error(t, err, "endpoint %q", endpoint)
	}
}

func TestGRPCTarget(t *testing.T) {
	cases := []struct {
		endpoint string
		override bool
		target   string
		insecure bool
	}{
		{"collector:4317", false, "collector:4317", true},
		{"http://collector:4317", false, "collector:4317", true},
		{"https://collector:4317/v1/traces", false, "collector:4317", false},
		{"https://collector:4317", true, "collector:4317", true},
	}
	for _, tc := range cases {
		target, insecure, err := grpcTarget(tc.endpoint, tc.override)
		require.NoError(t, err, tc.endpoint)
		assert.Equal(t, tc.target, target, tc.endpoint)
		assert.Equal(t, tc.insecure, insecure, tc.endpoint)
	}
}

func TestSetGlobal(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	p, err := New(context.Background(), config.TelemetryConfig{SampleRatio: 1})
	require.NoError(t, err)
	p.SetGlobal()

	assert.Same(t, p.TracerProvider, otel.GetTracerProvider())
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
