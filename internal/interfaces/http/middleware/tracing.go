// Package middleware provides the gin middleware of the connector API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds the request ID copied into span attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider defaults to the global provider when nil
	TracerProvider trace.TracerProvider
	// SkipPaths are not traced
	SkipPaths []string
}

// Tracing starts a server span per request through otelgin. Spans are named
// after the matched route and carry the request ID.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	opts := []otelgin.Option{}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	if len(cfg.SkipPaths) > 0 {
		skip := cfg.SkipPaths
		opts = append(opts, otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(skip, r.URL.Path)
		}))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher copies the request ID and the authenticated client onto the
// current span and marks it failed on 5xx. It runs after Tracing and JWT auth.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString(logger.GinRequestIDKey); id != "" {
			if len(id) > MaxRequestIDLength {
				id = id[:MaxRequestIDLength]
			}
			span.SetAttributes(attribute.String("request_id", id))
		}
		if client := GetJWTClient(c); client != "" {
			span.SetAttributes(attribute.String("client", client))
		}

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.StringSlice("gin.errors", c.Errors.Errors()))
		}
	}
}
