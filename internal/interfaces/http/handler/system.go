package handler

import (
	"context"
	"maps"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthCheck pings one dependency; nil means reachable
type HealthCheck func(ctx context.Context) error

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"

	defaultCheckTimeout = 3 * time.Second
)

// SystemHandler serves process information and health checks
type SystemHandler struct {
	BaseHandler
	name, version string
	started       time.Time
	checks        map[string]HealthCheck
	checkTimeout  time.Duration
}

// NewSystemHandler wires the readiness checks by dependency name. checks
// may be nil.
func NewSystemHandler(name, version string, checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{
		name:         name,
		version:      version,
		started:      time.Now(),
		checks:       maps.Clone(checks),
		checkTimeout: defaultCheckTimeout,
	}
}

// SystemInfoResponse describes the running build
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthResponse lists every check by name with "ok" or its error text
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// PingResponse echoes the server clock
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Describe the running build
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Ping godoc
// @ID           ping
// @Summary      Echo the server clock
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{Message: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// Live answers 200 while the process serves HTTP; it runs no checks
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: healthy, Checks: map[string]string{}})
}

// Health godoc
// @ID           health
// @Summary      Check dependencies
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := h.runChecks(c.Request.Context())
	status := http.StatusOK
	if resp.Status != healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// runChecks checks all dependencies concurrently under one shared timeout
func (h *SystemHandler) runChecks(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	names := slices.Sorted(maps.Keys(h.checks))
	results := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = h.checks[name](ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: healthy, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		if err := results[i]; err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = unhealthy
			continue
		}
		resp.Checks[name] = "ok"
	}
	return resp
}
