package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// SummaryCounts is the raw aggregate view backing the dashboard.
type SummaryCounts struct {
	TotalTickets         int64
	OpenTickets          int64
	CriticalCount        int64
	PendingApprovalCount int64
	AvgResponseHours     *float64
	TicketsByQueue       map[string]int64
	TicketsByStatus      map[string]int64
}

// DailyCount is one day of ticket volume.
type DailyCount struct {
	Date          string
	Count         int64
	CriticalCount int64
}

// DashboardRepository provides read-only aggregates over tickets. These views
// impose no workflow invariants.
type DashboardRepository interface {
	Summary(ctx context.Context) (*SummaryCounts, error)
	Timeseries(ctx context.Context, since time.Time) ([]DailyCount, error)
}

type dashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository instantiates repository.
func NewDashboardRepository(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepository{pool: pool}
}

func (r *dashboardRepository) Summary(ctx context.Context) (*SummaryCounts, error) {
	counts := &SummaryCounts{
		TicketsByQueue:  make(map[string]int64),
		TicketsByStatus: make(map[string]int64),
	}

	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status <> $1),
               COUNT(*) FILTER (WHERE is_critical),
               COUNT(*) FILTER (WHERE status = $2),
               AVG(EXTRACT(EPOCH FROM (sent_at - created_at)) / 3600.0) FILTER (WHERE sent_at IS NOT NULL)
        FROM tickets`
	err := r.pool.QueryRow(ctx, totals, domain.TicketStatusSent, domain.TicketStatusPendingApproval).Scan(
		&counts.TotalTickets,
		&counts.OpenTickets,
		&counts.CriticalCount,
		&counts.PendingApprovalCount,
		&counts.AvgResponseHours,
	)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	const byQueue = `
        SELECT predicted_queue, COUNT(*) FROM tickets
        WHERE predicted_queue IS NOT NULL GROUP BY predicted_queue`
	rows, err := r.pool.Query(ctx, byQueue)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()
	for rows.Next() {
		var queue string
		var n int64
		if err := rows.Scan(&queue, &n); err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		counts.TicketsByQueue[queue] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	const byStatus = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	statusRows, err := r.pool.Query(ctx, byStatus)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var n int64
		if err := statusRows.Scan(&status, &n); err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		counts.TicketsByStatus[status] = n
	}
	if err := statusRows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}

	return counts, nil
}

func (r *dashboardRepository) Timeseries(ctx context.Context, since time.Time) ([]DailyCount, error) {
	const query = `
        SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day,
               COUNT(*),
               COUNT(*) FILTER (WHERE is_critical)
        FROM tickets
        WHERE created_at >= $1
        GROUP BY day
        ORDER BY day ASC`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	defer rows.Close()

	var result []DailyCount
	for rows.Next() {
		var point DailyCount
		if err := rows.Scan(&point.Date, &point.Count, &point.CriticalCount); err != nil {
			return nil, errorutil.NewPersistenceFailure(err)
		}
		result = append(result, point)
	}
	if err := rows.Err(); err != nil {
		return nil, errorutil.NewPersistenceFailure(err)
	}
	return result, nil
}
