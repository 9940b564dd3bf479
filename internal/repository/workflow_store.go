package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// WorkflowStore performs the composite ticket transitions. Every method runs
// a single transaction whose ticket UPDATE carries an optimistic status
// guard: when two operations race on the same ticket, exactly one commits
// and the other reports STATE_CONFLICT with no state change.
type WorkflowStore interface {
	// SaveTriage persists prediction fields and moves NEW/TRIAGED -> TRIAGED.
	// Re-triage overwrites prior predictions in place.
	SaveTriage(ctx context.Context, ticketID int64, pred domain.TriagePrediction, language *string) (*domain.Ticket, error)
	// SaveDraft inserts the response and moves TRIAGED -> next
	// (DRAFTED or PENDING_APPROVAL) atomically.
	SaveDraft(ctx context.Context, resp *domain.Response, next domain.TicketStatus) (*domain.Ticket, error)
	// SaveDecision records the approval row, finalizes the pending response
	// when final content is given, and moves PENDING_APPROVAL -> next
	// (APPROVED or REJECTED) atomically.
	SaveDecision(ctx context.Context, approval *domain.Approval, final *domain.FinalContent, next domain.TicketStatus) (*domain.Ticket, error)
	// MarkSent moves DRAFTED/APPROVED -> SENT and stamps sent_at.
	MarkSent(ctx context.Context, ticketID int64, from domain.TicketStatus) (*domain.Ticket, error)
}

type workflowStore struct {
	pool *pgxpool.Pool
}

// NewWorkflowStore instantiates the store.
func NewWorkflowStore(pool *pgxpool.Pool) WorkflowStore {
	return &workflowStore{pool: pool}
}

func (s *workflowStore) SaveTriage(ctx context.Context, ticketID int64, pred domain.TriagePrediction, language *string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        UPDATE tickets
        SET predicted_queue=$1, queue_confidence=$2, critical_prob=$3, is_critical=$4,
            predicted_language=COALESCE($5, predicted_language),
            status=$6, triaged_at=NOW(), updated_at=NOW()
        WHERE id=$7 AND status = ANY($8)
        RETURNING %s`, ticketColumns)

	expected := []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusTriaged}
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query,
		pred.Queue,
		pred.QueueConfidence,
		pred.CriticalProb,
		pred.IsCritical,
		language,
		domain.TicketStatusTriaged,
		ticketID,
		statusStrings(expected),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.guardFailure(ctx, ticketID, expected)
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return ticket, nil
}

func (s *workflowStore) SaveDraft(ctx context.Context, resp *domain.Response, next domain.TicketStatus) (*domain.Ticket, error) {
	if next != domain.TicketStatusDrafted && next != domain.TicketStatusPendingApproval {
		return nil, errorutil.NewStateConflict("draft can only move a ticket to DRAFTED or PENDING_APPROVAL", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
        UPDATE tickets
        SET status=$1, predicted_language=COALESCE($2, predicted_language), updated_at=NOW()
        WHERE id=$3 AND status=$4
        RETURNING %s`, ticketColumns)
	expected := []domain.TicketStatus{domain.TicketStatusTriaged}
	ticket, err := scanTicket(tx.QueryRow(ctx, query,
		next,
		resp.DraftLanguage,
		resp.TicketID,
		domain.TicketStatusTriaged,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.guardFailure(ctx, resp.TicketID, expected)
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	const insert = `
        INSERT INTO responses (ticket_id, draft_language, draft_subject, draft_body, draft_confidence,
                               needs_human_approval, suggested_tags, retrieval_context)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	err = tx.QueryRow(ctx, insert,
		resp.TicketID,
		resp.DraftLanguage,
		resp.DraftSubject,
		resp.DraftBody,
		resp.DraftConfidence,
		resp.NeedsHumanApproval,
		resp.SuggestedTags,
		resp.RetrievalContext,
	).Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return ticket, nil
}

func (s *workflowStore) SaveDecision(ctx context.Context, approval *domain.Approval, final *domain.FinalContent, next domain.TicketStatus) (*domain.Ticket, error) {
	if next != domain.TicketStatusApproved && next != domain.TicketStatusRejected {
		return nil, errorutil.NewStateConflict("decision can only move a ticket to APPROVED or REJECTED", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`
        UPDATE tickets SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING %s`, ticketColumns)
	expected := []domain.TicketStatus{domain.TicketStatusPendingApproval}
	ticket, err := scanTicket(tx.QueryRow(ctx, query,
		next,
		approval.TicketID,
		domain.TicketStatusPendingApproval,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.guardFailure(ctx, approval.TicketID, expected)
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	if final != nil {
		// Finalize the newest un-finalized draft; once final_body is set the
		// row is never written again.
		const finalize = `
            UPDATE responses
            SET final_subject=$1, final_body=$2, approved_at=NOW()
            WHERE id = (
                SELECT id FROM responses
                WHERE ticket_id=$3 AND (final_body IS NULL OR final_body='')
                ORDER BY created_at DESC, id DESC LIMIT 1
            )`
		cmd, err := tx.Exec(ctx, finalize, final.Subject, final.Body, approval.TicketID)
		if err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		if cmd.RowsAffected() == 0 {
			return nil, errorutil.NewStateConflict("no pending response to finalize",
				map[string]any{"ticket_id": approval.TicketID})
		}
	}

	const insert = `
        INSERT INTO approvals (ticket_id, approver_name, approver_email, decision, decision_notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err = tx.QueryRow(ctx, insert,
		approval.TicketID,
		approval.ApproverName,
		approval.ApproverEmail,
		approval.Decision,
		approval.DecisionNotes,
	).Scan(&approval.ID, &approval.CreatedAt)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return ticket, nil
}

func (s *workflowStore) MarkSent(ctx context.Context, ticketID int64, from domain.TicketStatus) (*domain.Ticket, error) {
	if from != domain.TicketStatusDrafted && from != domain.TicketStatusApproved {
		return nil, errorutil.NewStateConflict("only DRAFTED or APPROVED tickets can be sent", nil)
	}

	query := fmt.Sprintf(`
        UPDATE tickets SET status=$1, sent_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING %s`, ticketColumns)
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, domain.TicketStatusSent, ticketID, from))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.guardFailure(ctx, ticketID, []domain.TicketStatus{from})
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return ticket, nil
}

// guardFailure distinguishes a missing ticket from a status conflict after a
// guarded UPDATE touched zero rows.
func (s *workflowStore) guardFailure(ctx context.Context, ticketID int64, expected []domain.TicketStatus) error {
	var current domain.TicketStatus
	err := s.pool.QueryRow(ctx, `SELECT status FROM tickets WHERE id=$1`, ticketID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return errorutil.NewPersistenceFailure(err)
	}
	return errorutil.NewStateConflict(
		fmt.Sprintf("ticket %d is %s, expected one of %v", ticketID, current, expected),
		map[string]any{"ticket_id": ticketID, "status": current},
	)
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
