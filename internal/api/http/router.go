package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chemconfig-service/internal/api/http/handlers"
	"github.com/spec-kit/chemconfig-service/internal/auth"
	"github.com/spec-kit/chemconfig-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuditLogs      *handlers.AuditLogsHandler
	AuthMiddleware *auth.AuthMiddleware
	UploadDir      string
	UploadBaseURL  string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.UploadDir != "" && cfg.UploadBaseURL != "" {
		app.Static(cfg.UploadBaseURL, cfg.UploadDir)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/status", cfg.Users.Status)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Users.Logout)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/", cfg.Users.ListUsers)
	users.Get("/:id", cfg.Users.GetUser)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)

	auditLogs := app.Group("/audit-logs", cfg.AuthMiddleware.Handle)
	auditLogs.Get("/tickets/:id/status-history", cfg.AuditLogs.StatusHistory)
	auditLogs.Get("/tickets/:id/logs", auth.RequireRole(domain.RoleAdmin), cfg.AuditLogs.TicketLogs)
	auditLogs.Get("/recent", auth.RequireRole(domain.RoleAdmin), cfg.AuditLogs.RecentActivity)
	auditLogs.Get("/users/:userId", cfg.AuditLogs.UserActivity)
}
