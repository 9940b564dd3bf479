package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
)

type stubAuditRepo struct {
	entries []domain.AuditLog
}

func (s *stubAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAuditRepo) ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	for _, e := range s.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAuditServiceRecordsWorkflowEvents(t *testing.T) {
	repo := &stubAuditRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(repo, testLogger()).Register(dispatcher)

	ctx := context.Background()
	publishEvent(ctx, dispatcher, events.Event{Type: events.EventTicketCreated, TicketID: 7, Actor: events.SystemActor})
	publishEvent(ctx, dispatcher, events.Event{Type: events.EventTicketTriaged, TicketID: 7, Actor: events.SystemActor,
		Payload: events.TicketTriagedPayload{Queue: "Billing", QueueConfidence: 0.8}})
	publishEvent(ctx, dispatcher, events.Event{Type: events.EventDraftGenerated, TicketID: 7, Actor: events.SystemActor})
	publishEvent(ctx, dispatcher, events.Event{Type: events.EventApprovalDecided, TicketID: 7, Actor: "lena@example.com",
		Payload: events.ApprovalDecidedPayload{Decision: domain.DecisionApproved}})
	publishEvent(ctx, dispatcher, events.Event{Type: events.EventResponseSent, TicketID: 7, Actor: events.SystemActor})

	require.Len(t, repo.entries, 5)
	actions := make([]string, len(repo.entries))
	for i, e := range repo.entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{
		domain.AuditTicketCreated,
		domain.AuditMLPrediction,
		domain.AuditDraftGenerated,
		domain.AuditApproved,
		domain.AuditEmailSent,
	}, actions)

	assert.Equal(t, "lena@example.com", repo.entries[3].Actor)
	require.NotNil(t, repo.entries[1].Details)
	assert.Contains(t, *repo.entries[1].Details, "Billing")
}

func TestAuditServiceRecordsRejection(t *testing.T) {
	repo := &stubAuditRepo{}
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(repo, testLogger()).Register(dispatcher)

	publishEvent(context.Background(), dispatcher, events.Event{
		Type:     events.EventApprovalDecided,
		TicketID: 9,
		Actor:    "lena@example.com",
		Payload:  events.ApprovalDecidedPayload{Decision: domain.DecisionRejected},
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, domain.AuditRejected, repo.entries[0].Action)
}
