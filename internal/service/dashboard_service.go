package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/persistence"
	"github.com/opsdesk/triage-service/internal/repository"
)

const (
	summaryCacheKey      = "dashboard:summary"
	timeseriesCacheKey   = "dashboard:timeseries:%d"
	defaultTimeseriesDays = 30
	maxTimeseriesDays     = 365
)

// DashboardSummary is the aggregate view served to operators.
type DashboardSummary struct {
	TotalTickets         int64            `json:"total_tickets"`
	OpenTickets          int64            `json:"open_tickets"`
	CriticalCount        int64            `json:"critical_count"`
	PendingApprovalCount int64            `json:"pending_approval_count"`
	AvgResponseTimeHours *float64         `json:"avg_response_time_hours"`
	TicketsByQueue       map[string]int64 `json:"tickets_by_queue"`
	TicketsByStatus      map[string]int64 `json:"tickets_by_status"`
	TicketsByPriority    map[string]int64 `json:"tickets_by_priority"`
}

// TimeSeriesPoint is a single day of ticket volume.
type TimeSeriesPoint struct {
	Date          string `json:"date"`
	Count         int64  `json:"count"`
	CriticalCount int64  `json:"critical_count"`
}

// DashboardService serves aggregates with a short Redis cache in front so a
// refreshing dashboard does not hammer Postgres.
type DashboardService struct {
	repo   repository.DashboardRepository
	cache  *persistence.Redis
	logger *zap.Logger
	ttl    time.Duration
}

// NewDashboardService constructs the service. cache may be nil, in which case
// every call hits the database.
func NewDashboardService(repo repository.DashboardRepository, cache *persistence.Redis, logger *zap.Logger, cfg config.DashboardConfig) *DashboardService {
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		ttl:    cfg.CacheTTL(),
	}
}

// Summary returns the aggregate dashboard view.
func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	if s.cache != nil {
		var cached DashboardSummary
		if err := s.cache.GetJSON(ctx, summaryCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	counts, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, err
	}
	summary := &DashboardSummary{
		TotalTickets:         counts.TotalTickets,
		OpenTickets:          counts.OpenTickets,
		CriticalCount:        counts.CriticalCount,
		PendingApprovalCount: counts.PendingApprovalCount,
		AvgResponseTimeHours: counts.AvgResponseHours,
		TicketsByQueue:       counts.TicketsByQueue,
		TicketsByStatus:      counts.TicketsByStatus,
		TicketsByPriority: map[string]int64{
			"high":   counts.CriticalCount,
			"medium": counts.TotalTickets - counts.CriticalCount,
		},
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, summaryCacheKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Timeseries returns daily ticket counts for the last `days` days. Days is
// clamped to [1, 365] and defaults to 30.
func (s *DashboardService) Timeseries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	if days <= 0 {
		days = defaultTimeseriesDays
	}
	if days > maxTimeseriesDays {
		days = maxTimeseriesDays
	}

	key := fmt.Sprintf(timeseriesCacheKey, days)
	if s.cache != nil {
		var cached []TimeSeriesPoint
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	since := time.Now().AddDate(0, 0, -days)
	daily, err := s.repo.Timeseries(ctx, since)
	if err != nil {
		return nil, err
	}
	points := make([]TimeSeriesPoint, len(daily))
	for i, d := range daily {
		points[i] = TimeSeriesPoint{Date: d.Date, Count: d.Count, CriticalCount: d.CriticalCount}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, points, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return points, nil
}
