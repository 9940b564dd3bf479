package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/observability"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// ApprovalService handles the human review gate: approving (optionally with
// edits) or rejecting a pending response.
type ApprovalService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	store      repository.WorkflowStore
	sender     *ResponseDispatcher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// Decision is the validated input for an approval operation.
type Decision struct {
	ApproverName  string
	ApproverEmail string
	Notes         *string
	// Edited* override the draft content on approval. Nil keeps the draft.
	EditedSubject *string
	EditedBody    *string
}

// DecisionResult reports the outcome of an approval operation.
type DecisionResult struct {
	Success  bool
	Message  string
	TicketID int64
	Status   domain.TicketStatus
}

// NewApprovalService constructs the service.
func NewApprovalService(
	tickets repository.TicketRepository,
	responses repository.ResponseRepository,
	store repository.WorkflowStore,
	sender *ResponseDispatcher,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		tickets:    tickets,
		responses:  responses,
		store:      store,
		sender:     sender,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Approve finalizes the pending response and sends it. When the approver
// supplied edits the recorded decision is EDITED_AND_APPROVED; otherwise
// APPROVED. The ticket ends SENT, or APPROVED when delivery fails.
func (s *ApprovalService) Approve(ctx context.Context, ticketID int64, dec Decision) (*DecisionResult, error) {
	if err := validateDecision(dec); err != nil {
		return nil, err
	}
	ticket, resp, err := s.pending(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	final := domain.FinalContent{
		Subject: derefOr(resp.DraftSubject, ticket.Subject),
		Body:    derefOr(resp.DraftBody, ""),
	}
	edited := false
	if dec.EditedSubject != nil && strings.TrimSpace(*dec.EditedSubject) != "" {
		final.Subject = strings.TrimSpace(*dec.EditedSubject)
		edited = true
	}
	if dec.EditedBody != nil && strings.TrimSpace(*dec.EditedBody) != "" {
		final.Body = strings.TrimSpace(*dec.EditedBody)
		edited = true
	}
	decision := domain.DecisionApproved
	if edited {
		decision = domain.DecisionEditedAndApproved
	}

	approval := &domain.Approval{
		TicketID:      ticketID,
		ApproverName:  strings.TrimSpace(dec.ApproverName),
		ApproverEmail: strings.TrimSpace(dec.ApproverEmail),
		Decision:      decision,
		DecisionNotes: dec.Notes,
	}
	ticket, err = s.store.SaveDecision(ctx, approval, &final, domain.TicketStatusApproved)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordWorkflowStep("approval", string(decision))
	s.publishDecision(ctx, approval, edited)
	s.logger.Info("response approved",
		zap.Int64("ticket_id", ticketID),
		zap.String("decision", string(decision)),
		zap.String("approver", approval.ApproverEmail))

	sent, err := s.sender.Dispatch(ctx, ticket, final.Subject, final.Body, false)
	if err != nil {
		// Approval is durable; the ticket stays APPROVED and delivery can be
		// retried out of band.
		return &DecisionResult{
			Success:  true,
			Message:  "response approved; email delivery pending",
			TicketID: ticketID,
			Status:   ticket.Status,
		}, nil
	}
	return &DecisionResult{
		Success:  true,
		Message:  "response approved and sent",
		TicketID: ticketID,
		Status:   sent.Status,
	}, nil
}

// Reject records the rejection and closes the ticket. No final content is
// written and nothing is sent to the submitter.
func (s *ApprovalService) Reject(ctx context.Context, ticketID int64, dec Decision) (*DecisionResult, error) {
	if err := validateDecision(dec); err != nil {
		return nil, err
	}
	if _, _, err := s.pending(ctx, ticketID); err != nil {
		return nil, err
	}

	approval := &domain.Approval{
		TicketID:      ticketID,
		ApproverName:  strings.TrimSpace(dec.ApproverName),
		ApproverEmail: strings.TrimSpace(dec.ApproverEmail),
		Decision:      domain.DecisionRejected,
		DecisionNotes: dec.Notes,
	}
	ticket, err := s.store.SaveDecision(ctx, approval, nil, domain.TicketStatusRejected)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordWorkflowStep("approval", string(domain.DecisionRejected))
	s.publishDecision(ctx, approval, false)
	s.logger.Info("response rejected",
		zap.Int64("ticket_id", ticketID),
		zap.String("approver", approval.ApproverEmail))

	return &DecisionResult{
		Success:  true,
		Message:  "response rejected",
		TicketID: ticketID,
		Status:   ticket.Status,
	}, nil
}

// PendingApprovals lists tickets awaiting a human decision.
func (s *ApprovalService) PendingApprovals(ctx context.Context, skip, limit int) ([]domain.Ticket, error) {
	status := domain.TicketStatusPendingApproval
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Status: &status,
		Skip:   skip,
		Limit:  limit,
	})
}

// PendingResponse returns the un-finalized draft under review for a ticket.
func (s *ApprovalService) PendingResponse(ctx context.Context, ticketID int64) (*domain.Response, error) {
	_, resp, err := s.pending(ctx, ticketID)
	return resp, err
}

// pending loads the ticket and its reviewable draft, enforcing the
// PENDING_APPROVAL precondition before any writes happen.
func (s *ApprovalService) pending(ctx context.Context, ticketID int64) (*domain.Ticket, *domain.Response, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.Status != domain.TicketStatusPendingApproval {
		return nil, nil, errorutil.NewStateConflict(
			fmt.Sprintf("ticket %d is %s, expected PENDING_APPROVAL", ticketID, ticket.Status),
			map[string]any{"ticket_id": ticketID, "status": ticket.Status},
		)
	}
	resp, err := s.responses.LatestByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil || resp.IsFinalized() {
		return nil, nil, errorutil.NewStateConflict("ticket has no pending response",
			map[string]any{"ticket_id": ticketID})
	}
	return ticket, resp, nil
}

func (s *ApprovalService) publishDecision(ctx context.Context, approval *domain.Approval, edited bool) {
	notes := ""
	if approval.DecisionNotes != nil {
		notes = *approval.DecisionNotes
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventApprovalDecided,
		TicketID: approval.TicketID,
		Actor:    approval.ApproverEmail,
		Payload: events.ApprovalDecidedPayload{
			Decision: approval.Decision,
			Edited:   edited,
			Notes:    notes,
		},
	})
}

func validateDecision(dec Decision) error {
	if len(strings.TrimSpace(dec.ApproverName)) < 2 {
		return errorutil.NewValidationError("approver_name must be at least 2 characters", nil)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(dec.ApproverEmail)); err != nil {
		return errorutil.NewValidationError("approver_email is not a valid email address", nil)
	}
	return nil
}
