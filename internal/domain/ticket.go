package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Values are wire-exact.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "NEW"
	TicketStatusTriaged         TicketStatus = "TRIAGED"
	TicketStatusDrafted         TicketStatus = "DRAFTED"
	TicketStatusPendingApproval TicketStatus = "PENDING_APPROVAL"
	TicketStatusApproved        TicketStatus = "APPROVED"
	TicketStatusSent            TicketStatus = "SENT"
	TicketStatusRejected        TicketStatus = "REJECTED"
)

// IsTerminal reports whether no further transitions are possible.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusSent || s == TicketStatusRejected
}

// Ticket is the aggregate root for submitted support requests. Prediction
// fields stay nil until triage has run; a re-triage overwrites them.
type Ticket struct {
	ID                int64
	Subject           string
	Body              string
	SubmitterName     string
	SubmitterEmail    string
	AttachmentPath    *string
	PredictedQueue    *string
	QueueConfidence   *float64
	CriticalProb      *float64
	IsCritical        bool
	PredictedLanguage *string
	Status            TicketStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
	TriagedAt         *time.Time
	SentAt            *time.Time
}

// TriagePrediction carries the scoring-oracle output persisted onto a ticket.
type TriagePrediction struct {
	Queue           string
	QueueConfidence float64
	CriticalProb    float64
	IsCritical      bool
}
