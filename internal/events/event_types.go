package events

import (
	"time"

	"github.com/opsdesk/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketTriaged   EventType = "ticket_triaged"
	EventDraftGenerated  EventType = "draft_generated"
	EventApprovalDecided EventType = "approval_decided"
	EventResponseSent    EventType = "response_sent"
)

// Event represents a domain event emitted by services. Actor is the system
// for automated steps and the approver's email for human decisions.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SystemActor marks events produced by automated workflow steps.
const SystemActor = "system"

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject        string `json:"subject"`
	SubmitterEmail string `json:"submitter_email"`
	HasAttachment  bool   `json:"has_attachment"`
}

// TicketTriagedPayload payload.
type TicketTriagedPayload struct {
	Queue           string  `json:"queue"`
	QueueConfidence float64 `json:"queue_confidence"`
	CriticalProb    float64 `json:"critical_prob"`
	IsCritical      bool    `json:"is_critical"`
	Retriage        bool    `json:"retriage"`
}

// DraftGeneratedPayload payload.
type DraftGeneratedPayload struct {
	ResponseID    int64   `json:"response_id"`
	Confidence    float64 `json:"confidence"`
	NeedsApproval bool    `json:"needs_approval"`
}

// ApprovalDecidedPayload payload.
type ApprovalDecidedPayload struct {
	Decision domain.ApprovalDecision `json:"decision"`
	Edited   bool                    `json:"edited"`
	Notes    string                  `json:"notes,omitempty"`
}

// ResponseSentPayload payload.
type ResponseSentPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	AutoSent bool   `json:"auto_sent"`
}
