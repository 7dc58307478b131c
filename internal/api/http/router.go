package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bazzarnet/support-service/internal/api/http/handlers"
	"github.com/bazzarnet/support-service/internal/auth"
	"github.com/bazzarnet/support-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Support        *handlers.SupportHandler
	AuthMiddleware *auth.AuthMiddleware
	SubmitLimiter  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Me)

	support := api.Group("/support")
	if cfg.SubmitLimiter != nil {
		support.Post("/submit", cfg.SubmitLimiter, cfg.Support.Submit)
	} else {
		support.Post("/submit", cfg.Support.Submit)
	}
	support.Get("/mine",
		cfg.AuthMiddleware.Handle,
		auth.RequireCapability(domain.CapListOwnTickets),
		cfg.Support.ListMine)

	admin := support.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("",
		auth.RequireCapability(domain.CapListAllTickets),
		cfg.Support.AdminList)
	admin.Put("/:id/status",
		auth.RequireCapability(domain.CapUpdateTicketStatus),
		cfg.Support.AdminUpdateStatus)
}
