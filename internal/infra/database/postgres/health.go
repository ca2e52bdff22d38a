package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents database health status
type HealthStatus struct {
	Status       string    `json:"status"`        // "healthy", "degraded", "unhealthy"
	ResponseTime string    `json:"response_time"` // e.g., "5ms"
	ActiveConns  int32     `json:"active_conns"`
	IdleConns    int32     `json:"idle_conns"`
	TotalConns   int32     `json:"total_conns"`
	MaxConns     int32     `json:"max_conns"`
	CheckedAt    time.Time `json:"checked_at"`
	Error        string    `json:"error,omitempty"`
}

// Health checks the health of the database connection
func (p *Pool) Health(ctx context.Context) *HealthStatus {
	start := time.Now()

	status := &HealthStatus{
		CheckedAt: start,
		Status:    "healthy",
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		status.Status = "unhealthy"
		status.Error = fmt.Sprintf("ping failed: %v", err)
		status.ResponseTime = time.Since(start).String()
		return status
	}

	stats := p.Stat()
	status.ActiveConns = stats.AcquiredConns()
	status.IdleConns = stats.IdleConns()
	status.TotalConns = stats.TotalConns()
	status.MaxConns = stats.MaxConns()
	status.ResponseTime = time.Since(start).String()

	if stats.AcquiredConns() >= stats.MaxConns()-2 {
		status.Status = "degraded"
		status.Error = "connection pool nearly exhausted"
	}

	return status
}

// Check adapts Health to the readiness checker used by the API
func (p *Pool) Check(ctx context.Context) (map[string]interface{}, error) {
	h := p.Health(ctx)
	details := map[string]interface{}{
		"active_conns":  h.ActiveConns,
		"idle_conns":    h.IdleConns,
		"total_conns":   h.TotalConns,
		"max_conns":     h.MaxConns,
		"response_time": h.ResponseTime,
	}
	if h.Status == "unhealthy" {
		return details, fmt.Errorf("%s", h.Error)
	}
	return details, nil
}
