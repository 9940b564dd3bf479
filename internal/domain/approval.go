package domain

import "time"

// ApprovalDecision enumerates human decisions on a pending response.
type ApprovalDecision string

const (
	DecisionApproved          ApprovalDecision = "APPROVED"
	DecisionEditedAndApproved ApprovalDecision = "EDITED_AND_APPROVED"
	DecisionRejected          ApprovalDecision = "REJECTED"
)

// IsApproval reports whether the decision releases the response for sending.
func (d ApprovalDecision) IsApproval() bool {
	return d == DecisionApproved || d == DecisionEditedAndApproved
}

// Approval records a single human decision on a ticket. Rows are append-only;
// the most recent row is the effective decision.
type Approval struct {
	ID            int64
	TicketID      int64
	ApproverName  string
	ApproverEmail string
	Decision      ApprovalDecision
	DecisionNotes *string
	CreatedAt     time.Time
}
