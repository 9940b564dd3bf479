package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// ApprovalRepository reads approval history. Decision rows are written by
// WorkflowStore so they commit atomically with the status transition.
type ApprovalRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Approval, error)
}

type approvalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository instantiates repository.
func NewApprovalRepository(pool *pgxpool.Pool) ApprovalRepository {
	return &approvalRepository{pool: pool}
}

func (r *approvalRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Approval, error) {
	const query = `
        SELECT id, ticket_id, approver_name, approver_email, decision, decision_notes, created_at
        FROM approvals WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()

	var result []domain.Approval
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(
			&a.ID,
			&a.TicketID,
			&a.ApproverName,
			&a.ApproverEmail,
			&a.Decision,
			&a.DecisionNotes,
			&a.CreatedAt,
		); err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return result, nil
}
