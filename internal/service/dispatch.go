package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/mailer"
	"github.com/opsdesk/triage-service/internal/repository"
)

// ResponseDispatcher delivers a response to the submitter and marks the
// ticket SENT. It serves both the approval path (APPROVED -> SENT) and the
// auto-send path (DRAFTED -> SENT). A delivery failure leaves the ticket in
// its prior status so the operation can be retried.
type ResponseDispatcher struct {
	store      repository.WorkflowStore
	sender     mailer.Sender
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewResponseDispatcher constructs the dispatcher.
func NewResponseDispatcher(store repository.WorkflowStore, sender mailer.Sender, dispatcher events.Dispatcher, logger *zap.Logger) *ResponseDispatcher {
	return &ResponseDispatcher{
		store:      store,
		sender:     sender,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Dispatch emails subject/body to the ticket's submitter, then transitions
// the ticket to SENT from its current status.
func (d *ResponseDispatcher) Dispatch(ctx context.Context, ticket *domain.Ticket, subject, body string, autoSent bool) (*domain.Ticket, error) {
	err := d.sender.Send(ctx, mailer.Message{
		ToEmail:  ticket.SubmitterEmail,
		ToName:   ticket.SubmitterName,
		Subject:  subject,
		Body:     body,
		TicketID: ticket.ID,
	})
	if err != nil {
		d.logger.Warn("response delivery failed",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
		return nil, err
	}

	sent, err := d.store.MarkSent(ctx, ticket.ID, ticket.Status)
	if err != nil {
		// The email went out but the status write lost a race or the store
		// failed. Surface the error; the caller decides how to report it.
		return nil, err
	}

	publishEvent(ctx, d.dispatcher, events.Event{
		Type:     events.EventResponseSent,
		TicketID: ticket.ID,
		Actor:    events.SystemActor,
		Payload: events.ResponseSentPayload{
			To:       ticket.SubmitterEmail,
			Subject:  subject,
			AutoSent: autoSent,
		},
	})
	d.logger.Info("response sent",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("to", ticket.SubmitterEmail),
		zap.Bool("auto_sent", autoSent))
	return sent, nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
