package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/connector/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests no route matched, keeping path cardinality bounded
const unmatchedRoute = "unknown"

var requestSizeBuckets = []float64{1 << 10, 16 << 10, 128 << 10, 1 << 20, 4 << 20, 16 << 20, 32 << 20}

type serverInstruments struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newServerInstruments(meter metric.Meter) (*serverInstruments, error) {
	var errs [4]error
	si := &serverInstruments{}
	si.requests, errs[0] = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests served", "{request}")
	si.latency, errs[1] = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	si.size, errs[2] = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "Declared HTTP request body size",
		Unit:        "By",
		Boundaries:  requestSizeBuckets,
	})
	si.inFlight, errs[3] = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return si, nil
}

// HTTPMetrics counts requests and records latency and body size per route
// template. The middleware passes requests through untouched when mp is nil
// or disabled.
func HTTPMetrics(mp *telemetry.MeterProvider, log *zap.Logger) gin.HandlerFunc {
	if mp == nil || !mp.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(mp.Meter("http.server"), log)
}

// HTTPMetricsWithMeter is HTTPMetrics on a caller-supplied meter
func HTTPMetricsWithMeter(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	si, err := newServerInstruments(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}
	return si.observe
}

func (si *serverInstruments) observe(c *gin.Context) {
	ctx := c.Request.Context()
	started := time.Now()
	si.inFlight.Add(ctx, 1)
	defer si.inFlight.Add(ctx, -1)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = unmatchedRoute
	}
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}
	si.latency.RecordDuration(ctx, time.Since(started), attrs...)
	if n := c.Request.ContentLength; n > 0 {
		si.size.Record(ctx, float64(n), attrs...)
	}

	attrs = append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
	if client := GetJWTClient(c); client != "" {
		attrs = append(attrs, telemetry.AttrClient.String(client))
	}
	si.requests.Inc(ctx, attrs...)
}

func passThrough(c *gin.Context) {
	c.Next()
}
