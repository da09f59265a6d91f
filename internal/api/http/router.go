package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/dispute-service/internal/api/http/handlers"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Disputes       *handlers.DisputesHandler
	Invitations    *handlers.InvitationsHandler
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
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/otp/request", cfg.Auth.RequestCode)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyCode)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/me", cfg.Accounts.Me)

	accounts := protected.Group("/accounts")
	accounts.Post("/switch", cfg.Accounts.Switch)
	accounts.Post("/restore", cfg.Accounts.Restore)
	accounts.Get("/:id", cfg.Accounts.Get)

	admin := accounts.Group("", auth.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin))
	admin.Post("/:id/suspend", cfg.Accounts.Suspend)
	admin.Post("/:id/reactivate", cfg.Accounts.Reactivate)
	admin.Put("/:id/level", cfg.Accounts.AssignLevel)

	protected.Get("/audit/:type/:id", auth.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin), cfg.Accounts.AuditHistory)

	disputes := protected.Group("/disputes")
	disputes.Post("/", cfg.Disputes.Create)
	disputes.Get("/", cfg.Disputes.List)
	disputes.Get("/stats", cfg.Disputes.Stats)
	disputes.Get("/:id", cfg.Disputes.Get)
	disputes.Patch("/:id", cfg.Disputes.Update)
	disputes.Post("/:id/transition", cfg.Disputes.Transition)
	disputes.Get("/:id/versions", cfg.Disputes.Versions)
	disputes.Post("/:id/invitations", cfg.Invitations.Create)
	disputes.Get("/:id/invitations", cfg.Invitations.ListForDispute)

	invitations := protected.Group("/invitations")
	invitations.Get("/:id", cfg.Invitations.Get)
	invitations.Put("/:id/schedule", cfg.Invitations.Schedule)
	invitations.Post("/:id/defendant", cfg.Invitations.AssignDefendant)
	invitations.Post("/:id/letter", cfg.Invitations.GenerateLetter)
	invitations.Post("/:id/documents", cfg.Invitations.ShareDocuments)
	invitations.Post("/:id/cancel", cfg.Invitations.Cancel)
}
