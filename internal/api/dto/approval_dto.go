package dto

import (
	"time"

	"github.com/opsdesk/triage-service/internal/domain"
)

// ApprovalCreateRequest body for the approve/reject endpoints.
type ApprovalCreateRequest struct {
	ApproverName  string  `json:"approver_name"`
	ApproverEmail string  `json:"approver_email"`
	DecisionNotes *string `json:"decision_notes"`
	EditedSubject *string `json:"edited_subject"`
	EditedBody    *string `json:"edited_body"`
}

// ApprovalDetail is the wire shape for a recorded decision.
type ApprovalDetail struct {
	ID            int64                   `json:"id"`
	TicketID      int64                   `json:"ticket_id"`
	ApproverName  string                  `json:"approver_name"`
	ApproverEmail string                  `json:"approver_email"`
	Decision      domain.ApprovalDecision `json:"decision"`
	DecisionNotes *string                 `json:"decision_notes"`
	CreatedAt     time.Time               `json:"created_at"`
}

// DecisionResponse reports on an approve/reject call.
type DecisionResponse struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	TicketID int64               `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
}

// PendingApprovalItem is one entry in the review queue.
type PendingApprovalItem struct {
	TicketID       int64     `json:"ticket_id"`
	Subject        string    `json:"subject"`
	SubmitterEmail string    `json:"submitter_email"`
	PredictedQueue string    `json:"predicted_queue"`
	CriticalProb   float64   `json:"critical_prob"`
	CreatedAt      time.Time `json:"created_at"`
	DraftSubject   *string   `json:"draft_subject"`
	DraftBody      *string   `json:"draft_body"`
}

// FromApproval maps a domain approval onto the wire shape.
func FromApproval(a *domain.Approval) ApprovalDetail {
	return ApprovalDetail{
		ID:            a.ID,
		TicketID:      a.TicketID,
		ApproverName:  a.ApproverName,
		ApproverEmail: a.ApproverEmail,
		Decision:      a.Decision,
		DecisionNotes: a.DecisionNotes,
		CreatedAt:     a.CreatedAt,
	}
}
