package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-escalation/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// dependency is a backend the readiness probe checks.
type dependency struct {
	name    string
	enabled func() bool
	ping    func(context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	startedAt    time.Time
	dependencies []dependency
}

// NewHealthHandler returns a handler probing the given backends. Either may
// be a zero value when not configured.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		dependencies: []dependency{
			{name: "postgres", enabled: postgres.Enabled, ping: postgres.Ping},
			{name: "redis", enabled: redis.Enabled, ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready pings every configured dependency. Unconfigured ones are reported
// as disabled and do not fail the probe.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	report := make(fiber.Map, len(h.dependencies))
	ready := true
	for _, dep := range h.dependencies {
		if !dep.enabled() {
			report[dep.name] = fiber.Map{"status": "disabled"}
			continue
		}
		start := time.Now()
		err := dep.ping(ctx)
		entry := fiber.Map{"status": "ok", "latency_ms": time.Since(start).Milliseconds()}
		if err != nil {
			entry["status"] = "down"
			entry["error"] = err.Error()
			ready = false
		}
		report[dep.name] = entry
	}

	if ready {
		return c.JSON(fiber.Map{"status": "ready", "dependencies": report})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": report,
		},
	})
}
