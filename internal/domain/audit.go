package domain

import "time"

// Audit actions recorded against tickets.
const (
	AuditTicketCreated  = "TICKET_CREATED"
	AuditMLPrediction   = "ML_PREDICTION"
	AuditDraftGenerated = "DRAFT_GENERATED"
	AuditApproved       = "APPROVED"
	AuditRejected       = "REJECTED"
	AuditEmailSent      = "EMAIL_SENT"
)

// AuditLog is an append-only record of a workflow action.
type AuditLog struct {
	ID        int64
	TicketID  int64
	Action    string
	Actor     string
	Details   *string
	CreatedAt time.Time
}
