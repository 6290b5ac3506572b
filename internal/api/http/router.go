package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-escalation/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-escalation/internal/auth"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Rules          *handlers.RulesHandler
	Escalations    *handlers.EscalationsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	app.Post("/auth/staff/login", cfg.Auth.Login)

	authn := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole()}
	managers := auth.RequireManager()
	admins := auth.RequireAdmin()

	tickets := app.Group("/tickets", authn...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/agent-suggestions", cfg.Tickets.AgentSuggestions)
	tickets.Post("/:id/assign", managers, cfg.Tickets.Assign)

	rules := app.Group("/escalation-rules", authn...)
	rules.Get("/", managers, cfg.Rules.List)
	rules.Post("/", admins, cfg.Rules.Create)
	// registered before /:id so "order" is not captured as an id
	rules.Put("/order", admins, cfg.Rules.Reorder)
	rules.Put("/:id", admins, cfg.Rules.Update)
	rules.Delete("/:id", admins, cfg.Rules.Delete)

	escalations := app.Group("/escalations", authn...)
	escalations.Post("/run", managers, cfg.Escalations.Run)

	audit := app.Group("/audit-logs", authn...)
	audit.Get("/", managers, cfg.Escalations.AuditLogs)

	agents := app.Group("/agents", authn...)
	agents.Get("/", managers, cfg.Agents.List)
	agents.Post("/", admins, cfg.Agents.Create)
	agents.Patch("/:id/status", admins, cfg.Agents.SetStatus)
}
