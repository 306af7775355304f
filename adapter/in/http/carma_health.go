package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"carma_server/pkg/metrics"
)

// HealthChecker is an optional backend probed by /ready.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/", h.Root)
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "CARMA AI backend operational",
		"version": "1.0.0",
	})
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"message":   "Carma API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true
	for name, checker := range h.checks {
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// MetricsHandler exposes per-route latency percentiles.
type MetricsHandler struct {
	latency *metrics.LatencyRegistry
}

func NewMetricsHandler(latency *metrics.LatencyRegistry) *MetricsHandler {
	return &MetricsHandler{latency: latency}
}

func (h *MetricsHandler) Register(app *fiber.App) {
	app.Get("/metrics", h.Latency)
}

func (h *MetricsHandler) Latency(c *fiber.Ctx) error {
	routes := make(map[string]map[string]any)
	for route, stats := range h.latency.AllStats() {
		routes[route] = stats.ToMap()
	}
	return c.JSON(fiber.Map{
		"latency":   routes,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
