package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/triage-service/internal/api/dto"
	"github.com/opsdesk/triage-service/internal/service"
	apperrors "github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// ApprovalsHandler manages the human review endpoints.
type ApprovalsHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalsHandler constructs handler.
func NewApprovalsHandler(approvals *service.ApprovalService) *ApprovalsHandler {
	return &ApprovalsHandler{approvals: approvals}
}

// ListPending GET /approvals/pending.
func (h *ApprovalsHandler) ListPending(c *fiber.Ctx) error {
	tickets, err := h.approvals.PendingApprovals(c.UserContext(), c.QueryInt("skip", 0), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}

	items := make([]dto.PendingApprovalItem, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		item := dto.PendingApprovalItem{
			TicketID:       ticket.ID,
			Subject:        ticket.Subject,
			SubmitterEmail: ticket.SubmitterEmail,
			PredictedQueue: "Unknown",
			CreatedAt:      ticket.CreatedAt,
		}
		if ticket.PredictedQueue != nil {
			item.PredictedQueue = *ticket.PredictedQueue
		}
		if ticket.CriticalProb != nil {
			item.CriticalProb = *ticket.CriticalProb
		}
		if resp, err := h.approvals.PendingResponse(c.UserContext(), ticket.ID); err == nil {
			item.DraftSubject = resp.DraftSubject
			item.DraftBody = resp.DraftBody
		}
		items = append(items, item)
	}
	return c.JSON(items)
}

// Approve POST /tickets/:id/approve.
func (h *ApprovalsHandler) Approve(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	dec, err := parseDecision(c)
	if err != nil {
		return err
	}
	result, err := h.approvals.Approve(c.UserContext(), id, dec)
	if err != nil {
		return err
	}
	return c.JSON(decisionResponse(result))
}

// Reject POST /tickets/:id/reject.
func (h *ApprovalsHandler) Reject(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	dec, err := parseDecision(c)
	if err != nil {
		return err
	}
	result, err := h.approvals.Reject(c.UserContext(), id, dec)
	if err != nil {
		return err
	}
	return c.JSON(decisionResponse(result))
}

func parseDecision(c *fiber.Ctx) (service.Decision, error) {
	var req dto.ApprovalCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return service.Decision{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.Decision{
		ApproverName:  req.ApproverName,
		ApproverEmail: req.ApproverEmail,
		Notes:         req.DecisionNotes,
		EditedSubject: req.EditedSubject,
		EditedBody:    req.EditedBody,
	}, nil
}

func decisionResponse(result *service.DecisionResult) dto.DecisionResponse {
	return dto.DecisionResponse{
		Success:  result.Success,
		Message:  result.Message,
		TicketID: result.TicketID,
		Status:   result.Status,
	}
}
