package logger

import (
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys set by the HTTP middleware
const (
	GinRequestIDKey = "request_id"
	GinCallerKey    = "caller"
	ginLoggerKey    = "logger"
)

// AccessLog writes one "HTTP Request" entry per request after the handler
// chain has run. The entry level follows the status: error for 5xx, warn
// for 4xx, debug for paths under a quiet prefix, info otherwise. Handlers
// get a logger tagged with the request through RequestLogger or FromContext.
func AccessLog(base *zap.Logger, quietPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		req := c.Request

		scoped := base.With(
			zap.String("request_id", c.GetString(GinRequestIDKey)),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		c.Set(ginLoggerKey, scoped)
		c.Request = req.WithContext(WithContext(req.Context(), scoped))

		c.Next()

		status := c.Writer.Status()
		level := accessLevel(status, req.URL.Path, quietPrefixes)
		ce := scoped.Check(level, "HTTP Request")
		if ce == nil {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(started)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := req.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if caller := c.GetString(GinCallerKey); caller != "" {
			fields = append(fields, zap.String("caller", caller))
		}
		if errs := c.Errors.Errors(); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs))
		}
		ce.Write(fields...)
	}
}

func accessLevel(status int, path string, quietPrefixes []string) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case slices.ContainsFunc(quietPrefixes, func(p string) bool { return strings.HasPrefix(path, p) }):
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// Recovery turns a handler panic into a logged error and a 500 envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		base.Error("Panic recovered",
			zap.String("request_id", c.GetString(GinRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "ERR_INTERNAL",
				"message":    "An unexpected error occurred",
				"request_id": c.GetString(GinRequestIDKey),
			},
		})
	})
}

// RequestLogger returns the logger AccessLog stored on c, or a no-op logger
func RequestLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Value(ginLoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
