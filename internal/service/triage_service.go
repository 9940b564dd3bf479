package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/observability"
	"github.com/opsdesk/triage-service/internal/oracle"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/internal/retrieval"
)

// TriageService runs the scoring step and, when requested, the drafting step
// as one logical operation. All persistence is all-or-nothing: nothing is
// written while an oracle call is in flight.
type TriageService struct {
	tickets    repository.TicketRepository
	store      repository.WorkflowStore
	scorer     oracle.ScoringOracle
	drafter    oracle.DraftingOracle
	retriever  retrieval.Retriever
	sender     *ResponseDispatcher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.TriageConfig
	timeout    time.Duration
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	TicketRepo    repository.TicketRepository
	WorkflowStore repository.WorkflowStore
	Scorer        oracle.ScoringOracle
	Drafter       oracle.DraftingOracle
	Retriever     retrieval.Retriever
	Sender        *ResponseDispatcher
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Triage        config.TriageConfig
	OracleTimeout time.Duration
}

// TriageResult is the outcome of one triage operation.
type TriageResult struct {
	TicketID          int64
	PredictedQueue    string
	QueueConfidence   float64
	CriticalProb      float64
	IsCritical        bool
	PredictedLanguage *string
	DraftGenerated    bool
	NeedsApproval     bool
	Status            domain.TicketStatus
}

// NewTriageService constructs the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	timeout := deps.OracleTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TriageService{
		tickets:    deps.TicketRepo,
		store:      deps.WorkflowStore,
		scorer:     deps.Scorer,
		drafter:    deps.Drafter,
		retriever:  deps.Retriever,
		sender:     deps.Sender,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        deps.Triage,
		timeout:    timeout,
	}
}

// Triage classifies the ticket and optionally generates a draft response.
// Permitted from NEW and TRIAGED; a re-triage overwrites prior predictions.
func (s *TriageService) Triage(ctx context.Context, ticketID int64, runDraft bool) (*TriageResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := EnsureTransition(ticket.ID, ticket.Status, domain.TicketStatusTriaged); err != nil {
		return nil, err
	}
	retriage := ticket.Status == domain.TicketStatusTriaged

	scoreCtx, cancel := context.WithTimeout(ctx, s.timeout)
	scores, err := s.scorer.Score(scoreCtx, ticket.Subject, ticket.Body)
	cancel()
	if err != nil {
		s.logger.Warn("scoring failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return nil, err
	}

	pred := domain.TriagePrediction{
		Queue:           scores.Queue,
		QueueConfidence: scores.QueueConfidence,
		CriticalProb:    scores.CriticalProb,
		IsCritical:      scores.CriticalProb >= s.cfg.CriticalThreshold,
	}
	var language *string
	if scores.Language != "" {
		language = &scores.Language
	}

	ticket, err = s.store.SaveTriage(ctx, ticketID, pred, language)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordWorkflowStep("triage", string(ticket.Status))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketTriaged,
		TicketID: ticket.ID,
		Actor:    events.SystemActor,
		Payload: events.TicketTriagedPayload{
			Queue:           pred.Queue,
			QueueConfidence: pred.QueueConfidence,
			CriticalProb:    pred.CriticalProb,
			IsCritical:      pred.IsCritical,
			Retriage:        retriage,
		},
	})
	s.logger.Info("ticket triaged",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("queue", pred.Queue),
		zap.Float64("queue_confidence", pred.QueueConfidence),
		zap.Float64("critical_prob", pred.CriticalProb),
		zap.Bool("is_critical", pred.IsCritical))

	result := &TriageResult{
		TicketID:          ticket.ID,
		PredictedQueue:    pred.Queue,
		QueueConfidence:   pred.QueueConfidence,
		CriticalProb:      pred.CriticalProb,
		IsCritical:        pred.IsCritical,
		PredictedLanguage: ticket.PredictedLanguage,
		NeedsApproval:     pred.IsCritical,
		Status:            ticket.Status,
	}
	if !runDraft {
		return result, nil
	}

	ticket, resp, err := s.generateDraft(ctx, ticket, pred)
	if err != nil {
		// Triage is already durable; the ticket stays TRIAGED and retrying
		// the operation is side-effect free.
		return nil, err
	}
	result.DraftGenerated = true
	result.NeedsApproval = resp.NeedsHumanApproval
	result.PredictedLanguage = ticket.PredictedLanguage
	result.Status = ticket.Status

	if !resp.NeedsHumanApproval && s.sender != nil {
		sent, err := s.sender.Dispatch(ctx, ticket, derefOr(resp.DraftSubject, ticket.Subject), derefOr(resp.DraftBody, ""), true)
		if err != nil {
			// Leave the ticket DRAFTED; the auto-send worker retries later.
			s.logger.Warn("auto-send deferred", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		} else {
			result.Status = sent.Status
		}
	}
	return result, nil
}

// generateDraft runs retrieval plus the drafting oracle and persists the
// response together with the status transition.
func (s *TriageService) generateDraft(ctx context.Context, ticket *domain.Ticket, pred domain.TriagePrediction) (*domain.Ticket, *domain.Response, error) {
	var snippets []oracle.Snippet
	if s.retriever != nil {
		retrCtx, cancel := context.WithTimeout(ctx, s.timeout)
		found, err := s.retriever.Similar(retrCtx, ticket.Subject, ticket.Body, pred.Queue, s.cfg.RetrievalLimit)
		cancel()
		if err != nil {
			// Context is optional; draft without it.
			s.logger.Warn("retrieval failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		} else {
			snippets = found
		}
	}

	draftCtx, cancel := context.WithTimeout(ctx, s.timeout)
	draft, err := s.drafter.Draft(draftCtx, oracle.DraftRequest{
		Subject:    ticket.Subject,
		Body:       ticket.Body,
		Queue:      pred.Queue,
		IsCritical: pred.IsCritical,
		Context:    snippets,
	})
	cancel()
	if err != nil {
		s.logger.Warn("draft generation failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return nil, nil, err
	}

	needsApproval := pred.IsCritical ||
		draft.Confidence < s.cfg.DraftConfidenceThreshold ||
		pred.QueueConfidence < s.cfg.QueueConfidenceThreshold

	resp := &domain.Response{
		TicketID:           ticket.ID,
		DraftSubject:       &draft.Subject,
		DraftBody:          &draft.Body,
		DraftConfidence:    &draft.Confidence,
		NeedsHumanApproval: needsApproval,
	}
	if draft.Language != "" {
		resp.DraftLanguage = &draft.Language
	}
	if len(draft.SuggestedTags) > 0 {
		if raw, err := json.Marshal(draft.SuggestedTags); err == nil {
			tags := string(raw)
			resp.SuggestedTags = &tags
		}
	}
	if len(snippets) > 0 {
		if raw, err := json.Marshal(snippets); err == nil {
			contextJSON := string(raw)
			resp.RetrievalContext = &contextJSON
		}
	}

	next := domain.TicketStatusDrafted
	if needsApproval {
		next = domain.TicketStatusPendingApproval
	}
	updated, err := s.store.SaveDraft(ctx, resp, next)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordWorkflowStep("draft", string(updated.Status))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventDraftGenerated,
		TicketID: updated.ID,
		Actor:    events.SystemActor,
		Payload: events.DraftGeneratedPayload{
			ResponseID:    resp.ID,
			Confidence:    draft.Confidence,
			NeedsApproval: needsApproval,
		},
	})
	s.logger.Info("draft generated",
		zap.Int64("ticket_id", updated.ID),
		zap.Float64("confidence", draft.Confidence),
		zap.Bool("needs_approval", needsApproval))
	return updated, resp, nil
}

func derefOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
