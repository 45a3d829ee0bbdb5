package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	mode    string
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new health handler. checks maps a dependency
// name to its probe; a nil probe is reported as disabled.
func NewHealthHandler(mode, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		mode:    mode,
		version: version,
		checks:  checks,
	}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "Perpustakaan loan API is running",
		"mode":    h.mode,
		"version": h.version,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API, database and redis health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{"api": "healthy"}

	for name, ping := range h.checks {
		switch {
		case ping == nil:
			checks[name] = "disabled"
		case ping(ctx) != nil:
			checks[name] = "unhealthy"
			status = fiber.StatusServiceUnavailable
		default:
			checks[name] = "healthy"
		}
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
