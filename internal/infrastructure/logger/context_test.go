package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

func fieldValue(entry observer.LoggedEntry, key string) (string, bool) {
	for _, f := range entry.Context {
		if f.Key == key {
			return f.String, true
		}
	}
	return "", false
}

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex(testTraceID)
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	base := zap.NewExample()
	assert.Same(t, base, FromContext(WithContext(context.Background(), base)))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestTraced(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(spanContext(t), zap.New(core))

	Traced(ctx, FromContext(ctx)).Info("line imported")

	entries := recorded.All()
	require.Len(t, entries, 1)
	traceID, ok := fieldValue(entries[0], "trace_id")
	require.True(t, ok)
	assert.Equal(t, testTraceID, traceID)
	spanID, _ := fieldValue(entries[0], "span_id")
	assert.Equal(t, "00f067aa0ba902b7", spanID)
}

func TestTaggedValues(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-1")
	ctx, _ = WithInstanceID(ctx, FromContext(ctx), "inst-1")
	ctx, l := WithCaller(ctx, FromContext(ctx), "storefront-bridge")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "inst-1", InstanceID(ctx))
	assert.Equal(t, "storefront-bridge", Caller(ctx))

	l.Info("queue processed")
	entry := recorded.All()[0]
	for key, want := range map[string]string{
		"request_id":  "req-1",
		"instance_id": "inst-1",
		"caller":      "storefront-bridge",
	} {
		got, ok := fieldValue(entry, key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	empty := context.Background()
	assert.Empty(t, RequestID(empty))
	assert.Empty(t, InstanceID(empty))
	assert.Empty(t, Caller(empty))
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Equal(t, testTraceID, TraceID(spanContext(t)))

	base := zap.NewNop()
	assert.Same(t, base, Traced(context.Background(), base))
}
