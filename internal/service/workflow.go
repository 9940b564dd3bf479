package service

import (
	"fmt"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// allowedTransitions is the ticket state machine. NEW is the only initial
// state; SENT and REJECTED are terminal. TRIAGED -> TRIAGED covers re-triage.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:             {domain.TicketStatusTriaged},
	domain.TicketStatusTriaged:         {domain.TicketStatusTriaged, domain.TicketStatusDrafted, domain.TicketStatusPendingApproval},
	domain.TicketStatusDrafted:         {domain.TicketStatusSent},
	domain.TicketStatusPendingApproval: {domain.TicketStatusApproved, domain.TicketStatusRejected},
	domain.TicketStatusApproved:        {domain.TicketStatusSent},
	domain.TicketStatusSent:            {},
	domain.TicketStatusRejected:        {},
}

// CanTransition reports whether the state machine allows current -> next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// EnsureTransition returns a STATE_CONFLICT error when current -> next is not
// allowed, leaving the decision of whether to write to the caller.
func EnsureTransition(ticketID int64, current, next domain.TicketStatus) error {
	if CanTransition(current, next) {
		return nil
	}
	return errorutil.NewStateConflict(
		fmt.Sprintf("ticket %d cannot move from %s to %s", ticketID, current, next),
		map[string]any{"ticket_id": ticketID, "status": current},
	)
}
