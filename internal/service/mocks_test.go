package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/mailer"
	"github.com/opsdesk/triage-service/internal/observability"
	"github.com/opsdesk/triage-service/internal/oracle"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// memStore is an in-memory stand-in for the ticket/response/approval stores.
// It enforces the same status guards as the Postgres implementation so the
// services are exercised against honest transition semantics.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	tickets   map[int64]*domain.Ticket
	responses []*domain.Response
	approvals []*domain.Approval

	createErr    error
	saveDraftErr error
	markSentErr  error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, tickets: map[int64]*domain.Ticket{}}
}

func (m *memStore) addTicket(t domain.Ticket) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.nextID
		m.nextID++
	} else if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusNew
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.tickets[t.ID] = &t
	return &t
}

func (m *memStore) addResponse(r domain.Response) *domain.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.responses) + 1)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.responses = append(m.responses, &r)
	return &r
}

func (m *memStore) ticket(id int64) domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tickets[id]
}

// TicketRepository

func (m *memStore) Create(ctx context.Context, t *domain.Ticket) error {
	if m.createErr != nil {
		return m.createErr
	}
	saved := m.addTicket(*t)
	*t = *saved
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	copy := *t
	return &copy, nil
}

func (m *memStore) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.tickets {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.SubmitterEmail != nil && t.SubmitterEmail != *filter.SubmitterEmail {
			continue
		}
		if filter.Queue != nil && (t.PredictedQueue == nil || *t.PredictedQueue != *filter.Queue) {
			continue
		}
		if filter.IsCritical != nil && t.IsCritical != *filter.IsCritical {
			continue
		}
		out = append(out, *t)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ResponseRepository

func (m *memStore) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Response
	for _, r := range m.responses {
		if r.TicketID == ticketID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) LatestByTicket(ctx context.Context, ticketID int64) (*domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.responses) - 1; i >= 0; i-- {
		if m.responses[i].TicketID == ticketID {
			copy := *m.responses[i]
			return &copy, nil
		}
	}
	return nil, errorutil.NewNotFound("response", map[string]any{"ticket_id": ticketID})
}

// ApprovalRepository

func (m *memStore) approvalsByTicket(ticketID int64) []domain.Approval {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Approval
	for _, a := range m.approvals {
		if a.TicketID == ticketID {
			out = append(out, *a)
		}
	}
	return out
}

// WorkflowStore

func (m *memStore) guard(id int64, expected ...domain.TicketStatus) (*domain.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	for _, s := range expected {
		if t.Status == s {
			return t, nil
		}
	}
	return nil, errorutil.NewStateConflict(
		fmt.Sprintf("ticket %d is %s, expected one of %v", id, t.Status, expected), nil)
}

func (m *memStore) SaveTriage(ctx context.Context, ticketID int64, pred domain.TriagePrediction, language *string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.guard(ticketID, domain.TicketStatusNew, domain.TicketStatusTriaged)
	if err != nil {
		return nil, err
	}
	t.PredictedQueue = &pred.Queue
	t.QueueConfidence = &pred.QueueConfidence
	t.CriticalProb = &pred.CriticalProb
	t.IsCritical = pred.IsCritical
	if language != nil {
		t.PredictedLanguage = language
	}
	t.Status = domain.TicketStatusTriaged
	now := time.Now()
	t.TriagedAt = &now
	copy := *t
	return &copy, nil
}

func (m *memStore) SaveDraft(ctx context.Context, resp *domain.Response, next domain.TicketStatus) (*domain.Ticket, error) {
	if m.saveDraftErr != nil {
		return nil, m.saveDraftErr
	}
	m.mu.Lock()
	t, err := m.guard(resp.TicketID, domain.TicketStatusTriaged)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	t.Status = next
	copy := *t
	m.mu.Unlock()

	saved := m.addResponse(*resp)
	*resp = *saved
	return &copy, nil
}

func (m *memStore) SaveDecision(ctx context.Context, approval *domain.Approval, final *domain.FinalContent, next domain.TicketStatus) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.guard(approval.TicketID, domain.TicketStatusPendingApproval)
	if err != nil {
		return nil, err
	}
	if final != nil {
		finalized := false
		for i := len(m.responses) - 1; i >= 0; i-- {
			r := m.responses[i]
			if r.TicketID == approval.TicketID && !r.IsFinalized() {
				subject, body := final.Subject, final.Body
				now := time.Now()
				r.FinalSubject = &subject
				r.FinalBody = &body
				r.ApprovedAt = &now
				finalized = true
				break
			}
		}
		if !finalized {
			return nil, errorutil.NewStateConflict("no pending response to finalize", nil)
		}
	}
	approval.ID = int64(len(m.approvals) + 1)
	approval.CreatedAt = time.Now()
	stored := *approval
	m.approvals = append(m.approvals, &stored)
	t.Status = next
	copy := *t
	return &copy, nil
}

func (m *memStore) MarkSent(ctx context.Context, ticketID int64, from domain.TicketStatus) (*domain.Ticket, error) {
	if m.markSentErr != nil {
		return nil, m.markSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.guard(ticketID, from)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatusSent
	now := time.Now()
	t.SentAt = &now
	copy := *t
	return &copy, nil
}

// approvalRepo adapts memStore to the ApprovalRepository interface without
// colliding with the ResponseRepository's ListByTicket.
type approvalRepo struct{ store *memStore }

func (r approvalRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Approval, error) {
	return r.store.approvalsByTicket(ticketID), nil
}

// oracle stubs

type stubScorer struct {
	scores *oracle.Scores
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, subject, body string) (*oracle.Scores, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copy := *s.scores
	return &copy, nil
}

type stubDrafter struct {
	result  *oracle.DraftResult
	err     error
	lastReq oracle.DraftRequest
}

func (s *stubDrafter) Draft(ctx context.Context, req oracle.DraftRequest) (*oracle.DraftResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	copy := *s.result
	return &copy, nil
}

type stubRetriever struct {
	snippets []oracle.Snippet
	err      error
}

func (s *stubRetriever) Similar(ctx context.Context, subject, body, queue string, k int) ([]oracle.Snippet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snippets, nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// eventRecorder captures everything published on the dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventRecorder(dispatcher events.Dispatcher) *eventRecorder {
	rec := &eventRecorder{}
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketTriaged,
		events.EventDraftGenerated,
		events.EventApprovalDecided,
		events.EventResponseSent,
	} {
		dispatcher.Subscribe(t, rec.record)
	}
	return rec
}

func (r *eventRecorder) record(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func testLogger() *zap.Logger { return zap.NewNop() }

func testMetrics() *observability.Metrics { return observability.NewMetrics() }

func strPtr(s string) *string { return &s }
