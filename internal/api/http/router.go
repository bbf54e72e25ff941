package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/petcontrol/pet-control/internal/api/http/handlers"
	"github.com/petcontrol/pet-control/internal/auth"
	"github.com/petcontrol/pet-control/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/", cfg.Auth.Authenticate)
	authGroup.Post("/verify", cfg.Auth.Verify)
	authGroup.Post("/logout", cfg.Auth.Logout)

	if cfg.AuthMiddleware != nil {
		authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)
	}
}
