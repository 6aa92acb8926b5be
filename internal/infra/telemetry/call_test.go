package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestStampCallMintsOnce(t *testing.T) {
	ctx, id := StampCall(context.Background())
	require.NotEmpty(t, id)

	got, ok := CallID(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, again := StampCall(ctx)
	assert.Equal(t, id, again)
}

func TestWithCallIDEmptyIsNoop(t *testing.T) {
	ctx := WithCallID(context.Background(), "")
	_, ok := CallID(ctx)
	assert.False(t, ok)
}

func TestCallFieldsFollowCurrentSpan(t *testing.T) {
	ctx := WithCallID(context.Background(), "call-7")
	require.Len(t, CallFields(ctx), 1)

	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	fields := CallFields(ctx)
	require.Len(t, fields, 3)
	assert.Equal(t, FieldCallID, fields[0].Key)
	assert.Equal(t, FieldTraceID, fields[1].Key)
	assert.Equal(t, FieldSpanID, fields[2].Key)

	assert.Nil(t, CallFields(context.Background()))
}

func TestCallLoggerNilBase(t *testing.T) {
	require.NotNil(t, CallLogger(context.Background(), nil))
}
