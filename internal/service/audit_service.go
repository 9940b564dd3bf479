package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/repository"
)

// AuditService turns workflow events into append-only audit log rows. Writes
// are best effort: a failed audit insert is logged but never fails the
// operation that emitted the event.
type AuditService struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo repository.AuditLogRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Register subscribes to every workflow event.
func (s *AuditService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	dispatcher.Subscribe(events.EventTicketTriaged, s.handle)
	dispatcher.Subscribe(events.EventDraftGenerated, s.handle)
	dispatcher.Subscribe(events.EventApprovalDecided, s.handle)
	dispatcher.Subscribe(events.EventResponseSent, s.handle)
}

// History lists the most recent audit entries for a ticket.
func (s *AuditService) History(ctx context.Context, ticketID int64, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListByTicket(ctx, ticketID, limit)
}

func (s *AuditService) handle(ctx context.Context, event events.Event) error {
	action := actionFor(event)
	if action == "" {
		return nil
	}
	entry := &domain.AuditLog{
		TicketID: event.TicketID,
		Action:   action,
		Actor:    event.Actor,
	}
	if event.Payload != nil {
		if raw, err := json.Marshal(event.Payload); err == nil {
			details := string(raw)
			entry.Details = &details
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			zap.Int64("ticket_id", event.TicketID),
			zap.String("action", action),
			zap.Error(err))
	}
	return nil
}

// actionFor maps an event to its audit action name.
func actionFor(event events.Event) string {
	switch event.Type {
	case events.EventTicketCreated:
		return domain.AuditTicketCreated
	case events.EventTicketTriaged:
		return domain.AuditMLPrediction
	case events.EventDraftGenerated:
		return domain.AuditDraftGenerated
	case events.EventApprovalDecided:
		if payload, ok := event.Payload.(events.ApprovalDecidedPayload); ok {
			if payload.Decision == domain.DecisionRejected {
				return domain.AuditRejected
			}
		}
		return domain.AuditApproved
	case events.EventResponseSent:
		return domain.AuditEmailSent
	}
	return ""
}
