package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Noop(t *testing.T) {
	ctx := context.Background()

	tp, err := NewProvider(ctx, "noop", "blobstream-test", "1.0.0")
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := Start(ctx, "test-span")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tp.Shutdown(ctx))
}

func TestExporters(t *testing.T) {
	require.Equal(t, []string{"noop", "grpc"}, Exporters)
}

func TestNewError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")

	cause := errors.New("boom")
	err := NewError(span, "failed to open blob: %w", cause)
	span.End()

	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "failed to open blob: boom")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
}

func TestNewError_NilSpan(t *testing.T) {
	err := NewError(nil, "failed: %s", "reason")
	require.EqualError(t, err, "span is nil: failed: reason")
}
