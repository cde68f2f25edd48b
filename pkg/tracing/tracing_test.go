package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestStartSpan_NoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "test.span")
	require.NotNil(t, span)
	span.End()

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestStartSpan_WithTracer(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())
	SetTracer(provider.Tracer("fern-test"))
	defer SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "test.span")
	defer span.End()

	assert.Len(t, GetTraceID(ctx), 32)
	assert.Len(t, GetSpanID(ctx), 16)
}
