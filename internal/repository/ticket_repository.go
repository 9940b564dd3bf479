package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// TicketFilter captures list query parameters.
type TicketFilter struct {
	Status         *domain.TicketStatus
	Queue          *string
	IsCritical     *bool
	SubmitterEmail *string
	Skip           int
	Limit          int
}

// TicketRepository encapsulates ticket persistence. Workflow transitions go
// through WorkflowStore; this repository only creates and reads.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

const ticketColumns = `id, subject, body, submitter_name, submitter_email, attachment_path,
               predicted_queue, queue_confidence, critical_prob, is_critical, predicted_language,
               status, created_at, updated_at, triaged_at, sent_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, body, submitter_name, submitter_email, attachment_path, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusNew
	}
	err := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Body,
		ticket.SubmitterName,
		ticket.SubmitterEmail,
		ticket.AttachmentPath,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return errorutil.NewPersistenceFailure(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Queue != nil {
		args = append(args, *filter.Queue)
		clauses = append(clauses, fmt.Sprintf("predicted_queue=$%d", len(args)))
	}
	if filter.IsCritical != nil {
		args = append(args, *filter.IsCritical)
		clauses = append(clauses, fmt.Sprintf("is_critical=$%d", len(args)))
	}
	if filter.SubmitterEmail != nil {
		args = append(args, *filter.SubmitterEmail)
		clauses = append(clauses, fmt.Sprintf("submitter_email=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, skip)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID,
		&t.Subject,
		&t.Body,
		&t.SubmitterName,
		&t.SubmitterEmail,
		&t.AttachmentPath,
		&t.PredictedQueue,
		&t.QueueConfidence,
		&t.CriticalProb,
		&t.IsCritical,
		&t.PredictedLanguage,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.TriagedAt,
		&t.SentAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
