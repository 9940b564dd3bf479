package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

func TestAllowedTransitions(t *testing.T) {
	allowed := []struct {
		from, to domain.TicketStatus
	}{
		{domain.TicketStatusNew, domain.TicketStatusTriaged},
		{domain.TicketStatusTriaged, domain.TicketStatusTriaged},
		{domain.TicketStatusTriaged, domain.TicketStatusDrafted},
		{domain.TicketStatusTriaged, domain.TicketStatusPendingApproval},
		{domain.TicketStatusDrafted, domain.TicketStatusSent},
		{domain.TicketStatusPendingApproval, domain.TicketStatusApproved},
		{domain.TicketStatusPendingApproval, domain.TicketStatusRejected},
		{domain.TicketStatusApproved, domain.TicketStatusSent},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestForbiddenTransitions(t *testing.T) {
	forbidden := []struct {
		from, to domain.TicketStatus
	}{
		{domain.TicketStatusNew, domain.TicketStatusDrafted},
		{domain.TicketStatusNew, domain.TicketStatusSent},
		{domain.TicketStatusTriaged, domain.TicketStatusSent},
		{domain.TicketStatusTriaged, domain.TicketStatusApproved},
		{domain.TicketStatusDrafted, domain.TicketStatusTriaged},
		{domain.TicketStatusDrafted, domain.TicketStatusPendingApproval},
		{domain.TicketStatusPendingApproval, domain.TicketStatusSent},
		{domain.TicketStatusApproved, domain.TicketStatusRejected},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []domain.TicketStatus{
		domain.TicketStatusNew,
		domain.TicketStatusTriaged,
		domain.TicketStatusDrafted,
		domain.TicketStatusPendingApproval,
		domain.TicketStatusApproved,
		domain.TicketStatusSent,
		domain.TicketStatusRejected,
	}
	for _, terminal := range []domain.TicketStatus{domain.TicketStatusSent, domain.TicketStatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, next := range all {
			assert.False(t, CanTransition(terminal, next), "%s -> %s", terminal, next)
		}
	}
}

func TestEnsureTransitionError(t *testing.T) {
	assert.NoError(t, EnsureTransition(1, domain.TicketStatusNew, domain.TicketStatusTriaged))

	err := EnsureTransition(1, domain.TicketStatusSent, domain.TicketStatusTriaged)
	assert.True(t, errorutil.IsCode(err, "STATE_CONFLICT"))
}
