package dto

import (
	"time"

	"github.com/opsdesk/triage-service/internal/domain"
)

// AuditEntry is the wire shape for one audit log row.
type AuditEntry struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   *string   `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// FromAuditLogs maps audit rows onto the wire shape.
func FromAuditLogs(entries []domain.AuditLog) []AuditEntry {
	out := make([]AuditEntry, len(entries))
	for i, e := range entries {
		out[i] = AuditEntry{
			ID:        e.ID,
			TicketID:  e.TicketID,
			Action:    e.Action,
			Actor:     e.Actor,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
