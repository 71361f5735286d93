package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of connector spans
const TracerName = "erp-connector"

// Span attribute keys used by the connector services
const (
	SpanAttrInstanceID  = "instance_id"
	SpanAttrQueueID     = "queue_id"
	SpanAttrQueueLineID = "queue_line_id"
	SpanAttrOrderRef    = "order_ref"
	SpanAttrOrderID     = "order_id"
	SpanAttrWorkflowID  = "workflow_id"
	SpanAttrOutcome     = "outcome"
)

// SpanOption adjusts a span before it starts
type SpanOption func(*spanStart)

type spanStart struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

func WithAttribute(key string, value any) SpanOption {
	return func(s *spanStart) { s.attrs = append(s.attrs, attr(key, value)) }
}

func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(s *spanStart) { s.kind = kind }
}

// StartSpan starts an internal span on the global tracer provider.
// The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	s := spanStart{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&s)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(s.kind),
		trace.WithAttributes(s.attrs...),
	)
}

// StartServiceSpan names the span "<service>.<method>", e.g. "order_queue.process_line"
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes takes alternating string keys and values. Pairs with a
// non-string key and a trailing key without value are ignored.
func SetAttributes(span trace.Span, kv ...any) {
	if span != nil {
		span.SetAttributes(attrs(kv)...)
	}
}

// RecordError marks the span failed and records err as an exception event
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent takes the same alternating key/value list as SetAttributes
func AddEvent(span trace.Span, name string, kv ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs(kv)...))
	}
}

func attrs(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			out = append(out, attr(key, kv[i+1]))
		}
	}
	return out
}

func attr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(value))
}
