package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// ResponseRepository reads response drafts. Inserts and finalization happen
// inside WorkflowStore transactions.
type ResponseRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Response, error)
	LatestByTicket(ctx context.Context, ticketID int64) (*domain.Response, error)
}

const responseColumns = `id, ticket_id, draft_language, draft_subject, draft_body, draft_confidence,
               needs_human_approval, suggested_tags, retrieval_context, final_subject, final_body,
               created_at, approved_at`

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository instantiates repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Response, error) {
	const query = `
        SELECT ` + responseColumns + `
        FROM responses WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		result = append(result, *resp)
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return result, nil
}

func (r *responseRepository) LatestByTicket(ctx context.Context, ticketID int64) (*domain.Response, error) {
	const query = `
        SELECT ` + responseColumns + `
        FROM responses WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`
	resp, err := scanResponse(r.pool.QueryRow(ctx, query, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.NewNotFound("response", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return resp, nil
}

func scanResponse(row pgx.Row) (*domain.Response, error) {
	var resp domain.Response
	if err := row.Scan(
		&resp.ID,
		&resp.TicketID,
		&resp.DraftLanguage,
		&resp.DraftSubject,
		&resp.DraftBody,
		&resp.DraftConfidence,
		&resp.NeedsHumanApproval,
		&resp.SuggestedTags,
		&resp.RetrievalContext,
		&resp.FinalSubject,
		&resp.FinalBody,
		&resp.CreatedAt,
		&resp.ApprovedAt,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}
