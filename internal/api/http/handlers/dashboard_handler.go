package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/triage-service/internal/api/dto"
	"github.com/opsdesk/triage-service/internal/service"
)

// DashboardHandler serves operator KPI endpoints.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary GET /dashboard/summary.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.dashboard.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.DashboardSummaryResponse{
		TotalTickets:         summary.TotalTickets,
		OpenTickets:          summary.OpenTickets,
		CriticalCount:        summary.CriticalCount,
		PendingApprovalCount: summary.PendingApprovalCount,
		AvgResponseTimeHours: summary.AvgResponseTimeHours,
		TicketsByQueue:       summary.TicketsByQueue,
		TicketsByPriority:    summary.TicketsByPriority,
		TicketsByStatus:      summary.TicketsByStatus,
	})
}

// Timeseries GET /dashboard/timeseries.
func (h *DashboardHandler) Timeseries(c *fiber.Ctx) error {
	points, err := h.dashboard.Timeseries(c.UserContext(), c.QueryInt("days", 30))
	if err != nil {
		return err
	}
	out := make([]dto.TimeSeriesPoint, len(points))
	for i, p := range points {
		out[i] = dto.TimeSeriesPoint{Date: p.Date, Count: p.Count, CriticalCount: p.CriticalCount}
	}
	return c.JSON(out)
}
