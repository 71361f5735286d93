package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/interfaces/http/dto"
)

// SwaggerConfig guards the API docs endpoint
type SwaggerConfig struct {
	Enabled bool
	// RequireAuth runs the auth middleware in front of the docs
	RequireAuth bool
	// AllowedIPs are addresses or CIDR ranges; empty allows every client
	AllowedIPs []string
}

// SwaggerProtection answers 404 while the docs are disabled, then applies the
// IP allow list and, when RequireAuth is set, authn. Unparsable allow list
// entries are ignored.
func SwaggerProtection(cfg SwaggerConfig, authn gin.HandlerFunc) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, entry := range cfg.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if p, err := netip.ParsePrefix(entry); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		requestID := c.GetString(logger.GinRequestIDKey)
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "API documentation is not available", requestID))
			return
		}
		if restricted && !clientAllowed(c.ClientIP(), prefixes) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Access to API documentation is restricted", requestID))
			return
		}
		if cfg.RequireAuth && authn != nil {
			authn(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

func clientAllowed(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
