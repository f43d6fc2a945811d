package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bavindu122/PillPath-Backend-sub001/internal/api/http/handlers"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/auth"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/domain"
	"github.com/bavindu122/PillPath-Backend-sub001/internal/ws"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionHandler
	Presence       *handlers.PresenceHandler
	AuthMiddleware *auth.AuthMiddleware
	WebSocket      fiber.Handler
	WebSocketPath  string
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.WebSocket != nil {
		path := cfg.WebSocketPath
		if path == "" {
			path = "/ws"
		}
		app.Get(path, ws.HandshakeMiddleware(cfg.Logger), cfg.WebSocket)
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	authGroup := api.Group("/auth")
	authGroup.Post("/google", cfg.Sessions.GoogleLogin)
	authGroup.Post("/logout", auth.RequireAuthenticated(), cfg.Sessions.Logout)
	authGroup.Get("/me", auth.RequireAuthenticated(), cfg.Sessions.Me)

	presence := api.Group("/presence/customers/:customerId", auth.RequireAuthenticated())
	presence.Get("/watchers", auth.RequireRole(domain.RoleAdmin, domain.RolePharmacyAdmin, domain.RolePharmacist), cfg.Presence.Watchers)
	presence.Post("/messages", cfg.Presence.Deliver)
}
