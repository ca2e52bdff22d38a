package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MichalDSW/investment-platform/internal/api/response"
)

const checkTimeout = 3 * time.Second

// Checker reports the health of one dependency
type Checker interface {
	Check(ctx context.Context) (map[string]interface{}, error)
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) (map[string]interface{}, error)

// Check implements Checker
func (f CheckerFunc) Check(ctx context.Context) (map[string]interface{}, error) { return f(ctx) }

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checkers  map[string]Checker
	source    string
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler; checkers are keyed by component name
func NewHealthHandler(source, version string, checkers map[string]Checker) *HealthHandler {
	if checkers == nil {
		checkers = map[string]Checker{}
	}
	return &HealthHandler{
		checkers:  checkers,
		source:    source,
		startTime: time.Now(),
		version:   version,
	}
}

// SimpleHealthResponse represents a simple health check response
type SimpleHealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents a readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// DetailedHealthResponse represents detailed health information
type DetailedHealthResponse struct {
	Status        string                     `json:"status"`
	Version       string                     `json:"version"`
	Source        string                     `json:"source"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Timestamp     time.Time                  `json:"timestamp"`
	Components    map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status       string                 `json:"status"`
	ResponseTime string                 `json:"response_time"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// Health returns simple liveness check
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, SimpleHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// Ready returns readiness check with dependency checks
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := make(map[string]string, len(h.checkers))
	status, statusCode, message := "ready", http.StatusOK, ""

	for name, component := range h.runChecks(c.Request.Context()) {
		if component.Status == "healthy" {
			checks[name] = "ok"
			continue
		}
		checks[name] = "error"
		status, statusCode = "not_ready", http.StatusServiceUnavailable
		if message == "" {
			message = name + " check failed"
		}
	}

	c.JSON(statusCode, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	})
}

// Detailed returns detailed health information
// GET /api/health/detailed
func (h *HealthHandler) Detailed(c *gin.Context) {
	components := h.runChecks(c.Request.Context())

	overall := "healthy"
	for _, component := range components {
		if component.Status != "healthy" {
			overall = "unhealthy"
		}
	}

	response.Success(c, DetailedHealthResponse{
		Status:        overall,
		Version:       h.version,
		Source:        h.source,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now(),
		Components:    components,
	})
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	out := make(map[string]ComponentHealth, len(h.checkers))
	for name, checker := range h.checkers {
		start := time.Now()
		details, err := checker.Check(ctx)

		component := ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start).String(),
			Details:      details,
		}
		if err != nil {
			component.Status = "unhealthy"
			component.Message = err.Error()
		}
		out[name] = component
	}
	return out
}
