// Package httpserver provides HTTP server infrastructure components.
package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Component and service states reported by the health endpoints.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// ComponentStatus is the state of one dependency: the store medium, the event
// bus or the collab backend.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// HealthChecker is implemented by the container in cmd/api. Both methods get
// the request context.
type HealthChecker interface {
	IsReady(ctx context.Context) bool
	GetHealthStatus(ctx context.Context) []ComponentStatus
}

// RegisterHealthEndpointsWithChecker mounts the health checks at the root, outside the
// API group:
//
//	GET /health          liveness, 200 while the process runs
//	GET /ready           503 until the store medium and event bus answer
//	GET /health/details  every component; a degraded collab backend still passes
//
// A nil checker reports ready with no components.
func (r *Router) RegisterHealthEndpointsWithChecker(checker HealthChecker) {
	h := health{checker: checker}
	r.echo.GET("/health", h.live)
	r.echo.GET("/ready", h.ready)
	r.echo.GET("/health/details", h.details)
}

type health struct {
	checker HealthChecker
}

func (h health) components(ctx context.Context) []ComponentStatus {
	if h.checker == nil {
		return nil
	}
	return h.checker.GetHealthStatus(ctx)
}

func (h health) live(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy})
}

func (h health) ready(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{Status: StatusReady, Components: h.components(ctx)}
	if h.checker != nil && !h.checker.IsReady(ctx) {
		resp.Status = StatusNotReady
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h health) details(c echo.Context) error {
	components := h.components(c.Request().Context())
	status := overallStatus(components)

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, HealthResponse{Status: status, Components: components})
}

// overallStatus is the worst component state; unhealthy outranks degraded.
func overallStatus(components []ComponentStatus) string {
	status := StatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
