package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is a dependency the health check reaches out to.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// AggregationState reports the engine switch and queue depth.
type AggregationState interface {
	IsEnabled() bool
	PendingCount() int
}

// Checker handles health check endpoints
type Checker struct {
	database    Pinger
	deps        map[string]Pinger
	aggregation AggregationState
	version     string
	startTime   time.Time
	ready       atomic.Bool
}

// NewChecker creates a new health checker. The database is required for a healthy status.
func NewChecker(database Pinger, aggregation AggregationState, version string) *Checker {
	return &Checker{
		database:    database,
		deps:        make(map[string]Pinger),
		aggregation: aggregation,
		version:     version,
		startTime:   time.Now(),
	}
}

// AddCheck adds an optional dependency such as redis or kafka.
func (c *Checker) AddCheck(name string, p Pinger) {
	c.deps[name] = p
}

// SetReady sets the readiness state
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// RegisterRoutes registers health check endpoints
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status      string                  `json:"status"`
	Version     string                  `json:"version"`
	Uptime      string                  `json:"uptime"`
	Checks      map[string]*CheckResult `json:"checks"`
	Aggregation *AggregationStatus      `json:"aggregation,omitempty"`
	ReportedAt  time.Time               `json:"reported_at"`
}

// CheckResult represents an individual check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type AggregationStatus struct {
	Enabled bool `json:"enabled"`
	Pending int  `json:"pending"`
}

func check(ctx context.Context, p Pinger) *CheckResult {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return &CheckResult{Status: "unhealthy", Message: err.Error()}
	}
	return &CheckResult{Status: "healthy", Latency: time.Since(start).String()}
}

// Health returns the overall health status
func (c *Checker) Health(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	status := &HealthStatus{
		Status:     "healthy",
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     make(map[string]*CheckResult),
		ReportedAt: time.Now(),
	}

	if c.database != nil {
		status.Checks["database"] = check(reqCtx, c.database)
	} else {
		status.Checks["database"] = &CheckResult{
			Status:  "unhealthy",
			Message: "database not configured",
		}
	}

	for name, p := range c.deps {
		status.Checks[name] = check(reqCtx, p)
	}

	for _, result := range status.Checks {
		if result.Status != "healthy" {
			status.Status = "unhealthy"
		}
	}

	if c.aggregation != nil {
		status.Aggregation = &AggregationStatus{
			Enabled: c.aggregation.IsEnabled(),
			Pending: c.aggregation.PendingCount(),
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	return ctx.JSON(httpStatus, status)
}

// Live returns the liveness status (is the service running)
func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready returns the readiness status (is the service ready to accept traffic)
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
