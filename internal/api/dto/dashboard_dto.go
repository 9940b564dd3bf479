package dto

// DashboardSummaryResponse is the KPI view for the operations dashboard.
type DashboardSummaryResponse struct {
	TotalTickets         int64            `json:"total_tickets"`
	OpenTickets          int64            `json:"open_tickets"`
	CriticalCount        int64            `json:"critical_count"`
	PendingApprovalCount int64            `json:"pending_approval_count"`
	AvgResponseTimeHours *float64         `json:"avg_response_time_hours"`
	TicketsByQueue       map[string]int64 `json:"tickets_by_queue"`
	TicketsByPriority    map[string]int64 `json:"tickets_by_priority"`
	TicketsByStatus      map[string]int64 `json:"tickets_by_status"`
}

// TimeSeriesPoint is one day of ticket volume.
type TimeSeriesPoint struct {
	Date          string `json:"date"`
	Count         int64  `json:"count"`
	CriticalCount int64  `json:"critical_count"`
}
