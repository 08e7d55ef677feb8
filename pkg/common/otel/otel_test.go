package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/whisper/pkg/common/logger"
)

func TestInitTelemetry_DisabledWithoutEndpoint(t *testing.T) {
	providers, cleanup, err := InitTelemetry(context.Background(), logger.Noop(), Config{ServiceName: "whisper"})
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	defer cleanup(context.Background())

	_, span := providers.Tracer.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NotNil(t, providers.Meter.Meter("test"))
}

func TestGetTraceID(t *testing.T) {
	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestNewResource(t *testing.T) {
	res := NewResource("whisper", map[string]string{"env": "test"})

	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "whisper", got["service.name"])
	assert.Equal(t, "test", got["env"])
}
