package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// AuditLogRepository appends workflow audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.AuditLog, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository instantiates repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (ticket_id, action, actor, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.Actor,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return errorutil.NewPersistenceFailure(err)
	}
	return nil
}

func (r *auditLogRepository) ListByTicket(ctx context.Context, ticketID int64, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, ticket_id, action, actor, details, created_at
        FROM audit_logs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()

	var result []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.Actor,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return result, nil
}
