package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/erp/connector/internal/infrastructure/telemetry"
)

// Profiling labels the CPU samples of each request with its route and method
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		telemetry.WithProfileLabels(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, "route", route, "method", c.Request.Method)
	}
}
