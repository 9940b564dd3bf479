package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/triage-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Approvals *handlers.ApprovalsHandler
	Dashboard *handlers.DashboardHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/tickets", cfg.Tickets.CreateTicket)
	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Post("/tickets/:id/triage", cfg.Tickets.TriageTicket)
	app.Get("/tickets/:id/audit", cfg.Tickets.TicketAudit)

	app.Get("/approvals/pending", cfg.Approvals.ListPending)
	app.Post("/tickets/:id/approve", cfg.Approvals.Approve)
	app.Post("/tickets/:id/reject", cfg.Approvals.Reject)

	app.Get("/dashboard/summary", cfg.Dashboard.Summary)
	app.Get("/dashboard/timeseries", cfg.Dashboard.Timeseries)
}
