package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey uint8

const (
	loggerKey ctxKey = iota
	requestIDKey
	instanceIDKey
	callerKey
)

var fieldNames = map[ctxKey]string{
	requestIDKey:  "request_id",
	instanceIDKey: "instance_id",
	callerKey:     "caller",
}

// WithContext stores l in ctx for FromContext
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// Traced tags l with the trace and span IDs of ctx, if any
func Traced(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// WithRequestID records the request ID in ctx and on l. The returned
// context carries the tagged logger.
func WithRequestID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return tag(ctx, l, requestIDKey, id)
}

// WithInstanceID records the storefront instance being worked on
func WithInstanceID(ctx context.Context, l *zap.Logger, id string) (context.Context, *zap.Logger) {
	return tag(ctx, l, instanceIDKey, id)
}

// WithCaller records the authenticated client
func WithCaller(ctx context.Context, l *zap.Logger, caller string) (context.Context, *zap.Logger) {
	return tag(ctx, l, callerKey, caller)
}

func tag(ctx context.Context, l *zap.Logger, key ctxKey, value string) (context.Context, *zap.Logger) {
	tagged := l.With(zap.String(fieldNames[key], value))
	return WithContext(context.WithValue(ctx, key, value), tagged), tagged
}

func RequestID(ctx context.Context) string  { return value(ctx, requestIDKey) }
func InstanceID(ctx context.Context) string { return value(ctx, instanceIDKey) }
func Caller(ctx context.Context) string     { return value(ctx, callerKey) }

// TraceID returns the hex trace ID of the span in ctx, or ""
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

func value(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
