package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type callIDKey struct{}

// NewCallID mints an identifier for one dispatched tool call.
func NewCallID() string {
	return uuid.NewString()
}

// WithCallID returns ctx carrying id. An empty id leaves ctx as is.
func WithCallID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallID reports the call identifier stamped on ctx.
func CallID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(callIDKey{}).(string)
	return id, ok && id != ""
}

// StampCall guarantees ctx carries a call ID, minting one when absent.
func StampCall(ctx context.Context) (context.Context, string) {
	if id, ok := CallID(ctx); ok {
		return ctx, id
	}
	id := NewCallID()
	return WithCallID(ctx, id), id
}

// CallFields returns the zap fields identifying the call on ctx: the
// call ID plus the active trace span. Trace fields are read each time
// rather than stamped once, so log lines follow whichever span is
// current when they are written.
func CallFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := CallID(ctx); ok {
		fields = append(fields, zap.String(FieldCallID, id))
	}
	if ctx == nil {
		return fields
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String(FieldTraceID, sc.TraceID().String()),
			zap.String(FieldSpanID, sc.SpanID().String()),
		)
	}
	return fields
}

// CallLogger annotates base with the identity of the call on ctx.
func CallLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := CallFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
