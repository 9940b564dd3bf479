package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/triage-service/internal/api/dto"
	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/internal/service"
	apperrors "github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket intake, listing and triage endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	triage  *service.TriageService
	audit   *service.AuditService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, triage *service.TriageService, audit *service.AuditService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, triage: triage, audit: audit}
}

// CreateTicket POST /tickets (multipart form).
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	in := service.NewTicket{
		Subject:        c.FormValue("subject"),
		Body:           c.FormValue("body"),
		SubmitterName:  c.FormValue("submitter_name"),
		SubmitterEmail: c.FormValue("submitter_email"),
	}
	if file, err := c.FormFile("attachment"); err == nil {
		in.Attachment = file
	}

	ticket, err := h.tickets.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromTicket(ticket))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTicketDetail(detail.Ticket, detail.Responses, detail.Approvals))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTickets(tickets))
}

// TriageTicket POST /tickets/:id/triage.
func (h *TicketsHandler) TriageTicket(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	req := dto.TriageRequest{RunDraft: true}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	result, err := h.triage.Triage(c.UserContext(), id, req.RunDraft)
	if err != nil {
		return err
	}
	return c.JSON(dto.TriageResponse{
		Success:           true,
		Message:           "triage completed",
		TicketID:          result.TicketID,
		PredictedQueue:    result.PredictedQueue,
		QueueConfidence:   result.QueueConfidence,
		CriticalProb:      result.CriticalProb,
		IsCritical:        result.IsCritical,
		PredictedLanguage: result.PredictedLanguage,
		DraftGenerated:    result.DraftGenerated,
		NeedsApproval:     result.NeedsApproval,
		Status:            result.Status,
	})
}

// TicketAudit GET /tickets/:id/audit.
func (h *TicketsHandler) TicketAudit(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	entries, err := h.audit.History(c.UserContext(), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromAuditLogs(entries))
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("ticket id must be a positive integer", nil)
	}
	return id, nil
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Skip:  c.QueryInt("skip", 0),
		Limit: c.QueryInt("limit", 0),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.TicketStatus(strings.ToUpper(raw))
		switch status {
		case domain.TicketStatusNew, domain.TicketStatusTriaged, domain.TicketStatusDrafted,
			domain.TicketStatusPendingApproval, domain.TicketStatusApproved,
			domain.TicketStatusSent, domain.TicketStatusRejected:
			filter.Status = &status
		default:
			return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": raw})
		}
	}
	if queue := strings.TrimSpace(c.Query("queue")); queue != "" {
		filter.Queue = &queue
	}
	if raw := c.Query("is_critical"); raw != "" {
		critical, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("is_critical must be a boolean", nil)
		}
		filter.IsCritical = &critical
	}
	if email := strings.TrimSpace(c.Query("submitter_email")); email != "" {
		filter.SubmitterEmail = &email
	}
	return filter, nil
}
