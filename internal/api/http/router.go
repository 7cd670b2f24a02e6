package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticket-engine/internal/api/http/handlers"
	"github.com/guildops/ticket-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Departments    *handlers.DepartmentsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
	AdminKeyHash   string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:number", cfg.Tickets.GetByNumber)
	tickets.Post("/:id/claim", auth.RequireStaff(), cfg.Tickets.Claim)
	tickets.Post("/:id/transfer", auth.RequireStaff(), cfg.Tickets.Transfer)
	tickets.Post("/:id/priority", auth.RequireStaff(), cfg.Tickets.Reprioritize)
	tickets.Post("/:id/pending", auth.RequireStaff(), cfg.Tickets.Pending)
	tickets.Post("/:id/activity", cfg.Tickets.Touch)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/reopen", auth.RequireStaff(), cfg.Tickets.Reopen)
	tickets.Post("/:id/rating", cfg.Tickets.Rate)

	departments := app.Group("/departments", auth.RequireAdminKey(cfg.AdminKeyHash))
	departments.Post("", cfg.Departments.Create)
	departments.Get("", cfg.Departments.List)
	departments.Get("/:id", cfg.Departments.Get)
	departments.Patch("/:id", cfg.Departments.Update)
	departments.Delete("/:id", cfg.Departments.Delete)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle)
	stats.Get("/guild", cfg.Stats.Guild)
	stats.Get("/me", cfg.Stats.User)
}
