package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/guild-tickets/internal/api/http/handlers"
	"github.com/spec-kit/guild-tickets/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Roles          *handlers.RolesHandler
	Guilds         *handlers.GuildsHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Everything under /guilds/:guildID
// is authenticated; API-key principals are scoped to that guild.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	guild := app.Group("/guilds/:guildID", cfg.AuthMiddleware.Handle)
	guild.Post("/setup", cfg.Guilds.Setup)

	tickets := guild.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:number", cfg.Tickets.Get)
	tickets.Post("/:number/claim", cfg.Tickets.Claim)
	tickets.Post("/:number/unclaim", cfg.Tickets.Unclaim)
	tickets.Post("/:number/transfer", cfg.Tickets.Transfer)
	tickets.Post("/:number/close", cfg.Tickets.Close)
	tickets.Post("/:number/close-request", cfg.Tickets.RequestClose)
	tickets.Delete("/:number/close-request", cfg.Tickets.CancelCloseRequest)
	tickets.Put("/:number/autoclose-exclusion", cfg.Tickets.SetAutocloseExclusion)
	tickets.Get("/:number/audit", cfg.Audit.ListForTicket)

	roles := guild.Group("/roles")
	roles.Post("", cfg.Roles.Create)
	roles.Get("", cfg.Roles.List)
	roles.Put("/:roleID", cfg.Roles.UpdateMask)
	roles.Delete("/:roleID", cfg.Roles.Delete)
	roles.Post("/:roleID/members", cfg.Roles.AssignMember)
	roles.Delete("/:roleID/members/:userID", cfg.Roles.RemoveMember)

	guild.Get("/audit", cfg.Audit.ListForGuild)
}
