package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/oracle"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

type triageFixture struct {
	store    *memStore
	scorer   *stubScorer
	drafter  *stubDrafter
	mail     *stubMailer
	recorder *eventRecorder
	service  *TriageService
}

func newTriageFixture(t *testing.T) *triageFixture {
	t.Helper()
	store := newMemStore()
	scorer := &stubScorer{scores: &oracle.Scores{
		Queue:           "Technical Support",
		QueueConfidence: 0.91,
		CriticalProb:    0.12,
		Language:        "en",
	}}
	drafter := &stubDrafter{result: &oracle.DraftResult{
		Language:   "en",
		Subject:    "Re: your request",
		Body:       "We have restarted the service, please try again.",
		Confidence: 0.88,
	}}
	mail := &stubMailer{}
	dispatcher := events.NewInMemoryDispatcher()
	recorder := newEventRecorder(dispatcher)
	logger := testLogger()

	sender := NewResponseDispatcher(store, mail, dispatcher, logger)
	svc := NewTriageService(TriageDependencies{
		TicketRepo:    store,
		WorkflowStore: store,
		Scorer:        scorer,
		Drafter:       drafter,
		Retriever:     &stubRetriever{},
		Sender:        sender,
		Dispatcher:    dispatcher,
		Metrics:       testMetrics(),
		Logger:        logger,
		Triage: config.TriageConfig{
			CriticalThreshold:        0.5,
			QueueConfidenceThreshold: 0.7,
			DraftConfidenceThreshold: 0.7,
			RetrievalLimit:           3,
		},
		OracleTimeout: 2 * time.Second,
	})
	return &triageFixture{store: store, scorer: scorer, drafter: drafter, mail: mail, recorder: recorder, service: svc}
}

func (f *triageFixture) newTicket() *domain.Ticket {
	return f.store.addTicket(domain.Ticket{
		Subject:        "VPN keeps disconnecting",
		Body:           "Since this morning the VPN drops every few minutes.",
		SubmitterName:  "Dana Silva",
		SubmitterEmail: "dana@example.com",
	})
}

func TestTriageCriticalTicketRequiresApproval(t *testing.T) {
	f := newTriageFixture(t)
	f.scorer.scores.CriticalProb = 0.92
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)

	assert.True(t, result.IsCritical)
	assert.True(t, result.NeedsApproval)
	assert.True(t, result.DraftGenerated)
	assert.Equal(t, domain.TicketStatusPendingApproval, result.Status)
	assert.Empty(t, f.mail.sent, "critical tickets must not auto-send")

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusPendingApproval, stored.Status)
	require.NotNil(t, stored.CriticalProb)
	assert.InDelta(t, 0.92, *stored.CriticalProb, 1e-9)
	assert.NotNil(t, stored.TriagedAt)
}

func TestTriageLowRiskAutoSends(t *testing.T) {
	f := newTriageFixture(t)
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)

	assert.False(t, result.NeedsApproval)
	assert.Equal(t, domain.TicketStatusSent, result.Status)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "dana@example.com", f.mail.sent[0].ToEmail)

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusSent, stored.Status)
	assert.NotNil(t, stored.SentAt)

	// Auto-send must not fabricate approved content.
	resp, err := f.store.LatestByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, resp.FinalBody)
	assert.Empty(t, f.store.approvalsByTicket(ticket.ID))

	assert.Equal(t, []events.EventType{
		events.EventTicketTriaged,
		events.EventDraftGenerated,
		events.EventResponseSent,
	}, f.recorder.types())
}

func TestTriageLowDraftConfidenceRequiresApproval(t *testing.T) {
	f := newTriageFixture(t)
	f.drafter.result.Confidence = 0.42
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, result.NeedsApproval)
	assert.Equal(t, domain.TicketStatusPendingApproval, result.Status)
	assert.Empty(t, f.mail.sent)
}

func TestTriageLowQueueConfidenceRequiresApproval(t *testing.T) {
	f := newTriageFixture(t)
	f.scorer.scores.QueueConfidence = 0.55
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, result.NeedsApproval)
	assert.Equal(t, domain.TicketStatusPendingApproval, result.Status)
}

func TestTriageScoringFailureWritesNothing(t *testing.T) {
	f := newTriageFixture(t)
	f.scorer.err = errorutil.NewOracleUnavailable("scoring oracle unavailable", errors.New("connection refused"))
	ticket := f.newTicket()

	_, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, "ORACLE_UNAVAILABLE"))

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Nil(t, stored.PredictedQueue)
	assert.Nil(t, stored.TriagedAt)
	assert.Empty(t, f.recorder.types())
}

func TestTriageDraftFailureLeavesTicketTriaged(t *testing.T) {
	f := newTriageFixture(t)
	f.drafter.err = errorutil.NewOracleUnavailable("drafting oracle unavailable", errors.New("timeout"))
	ticket := f.newTicket()

	_, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, "ORACLE_UNAVAILABLE"))

	// Classification is durable; only the draft step failed.
	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusTriaged, stored.Status)
	require.NotNil(t, stored.PredictedQueue)
	assert.Equal(t, "Technical Support", *stored.PredictedQueue)
	assert.Empty(t, f.store.responses)

	// Retry succeeds once the oracle recovers.
	f.drafter.err = nil
	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, result.DraftGenerated)
}

func TestRetriageOverwritesPredictions(t *testing.T) {
	f := newTriageFixture(t)
	ticket := f.newTicket()

	_, err := f.service.Triage(context.Background(), ticket.ID, false)
	require.NoError(t, err)

	f.scorer.scores.Queue = "Billing"
	f.scorer.scores.QueueConfidence = 0.77
	result, err := f.service.Triage(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Billing", result.PredictedQueue)

	stored := f.store.ticket(ticket.ID)
	require.NotNil(t, stored.PredictedQueue)
	assert.Equal(t, "Billing", *stored.PredictedQueue)
	assert.Equal(t, domain.TicketStatusTriaged, stored.Status)
}

func TestTriageWithoutDraftKeepsTicketTriaged(t *testing.T) {
	f := newTriageFixture(t)
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, false)
	require.NoError(t, err)
	assert.False(t, result.DraftGenerated)
	assert.Equal(t, domain.TicketStatusTriaged, result.Status)
	assert.Empty(t, f.store.responses)
	assert.Empty(t, f.mail.sent)
}

func TestTriageRejectsTerminalTicket(t *testing.T) {
	f := newTriageFixture(t)
	ticket := f.store.addTicket(domain.Ticket{
		Subject:        "done already",
		Body:           "this one is finished",
		SubmitterEmail: "done@example.com",
		Status:         domain.TicketStatusSent,
	})

	_, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, "STATE_CONFLICT"))
	assert.Equal(t, 0, f.scorer.calls, "oracle must not be called for terminal tickets")
}

func TestTriageUnknownTicket(t *testing.T) {
	f := newTriageFixture(t)
	_, err := f.service.Triage(context.Background(), 404, true)
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, "NOT_FOUND"))
}

func TestAutoSendFailureLeavesTicketDrafted(t *testing.T) {
	f := newTriageFixture(t)
	f.mail.err = errors.New("smtp connect: refused")
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err, "a failed auto-send is not a triage failure")
	assert.Equal(t, domain.TicketStatusDrafted, result.Status)

	stored := f.store.ticket(ticket.ID)
	assert.Equal(t, domain.TicketStatusDrafted, stored.Status)
	assert.Nil(t, stored.SentAt)
}

func TestDraftContextPassedToOracle(t *testing.T) {
	f := newTriageFixture(t)
	f.service.retriever = &stubRetriever{snippets: []oracle.Snippet{
		{Subject: "VPN drops", Answer: "Reset the tunnel config.", Queue: "Technical Support"},
	}}
	ticket := f.newTicket()

	_, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)
	require.Len(t, f.drafter.lastReq.Context, 1)
	assert.Equal(t, "VPN drops", f.drafter.lastReq.Context[0].Subject)

	resp, err := f.store.LatestByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.NotNil(t, resp.RetrievalContext)
}

func TestRetrievalFailureDoesNotBlockDraft(t *testing.T) {
	f := newTriageFixture(t)
	f.service.retriever = &stubRetriever{err: errors.New("query timeout")}
	ticket := f.newTicket()

	result, err := f.service.Triage(context.Background(), ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, result.DraftGenerated)
	assert.Empty(t, f.drafter.lastReq.Context)
}
