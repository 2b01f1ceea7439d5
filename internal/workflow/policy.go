// Package workflow decides whether a principal may move a ticket between
// statuses. It is pure: no storage, no clock, no side effects.
package workflow

import "github.com/spec-kit/chemconfig-service/internal/domain"

// workflowRank orders statuses for forward-movement checks. APPROVED and
// REJECTED are siblings at the same rank; neither is forward of the other.
var workflowRank = map[domain.TicketStatus]int{
	domain.TicketStatusDraft:    0,
	domain.TicketStatusPending:  1,
	domain.TicketStatusApproved: 2,
	domain.TicketStatusRejected: 2,
}

// IsForwardMovement reports whether target sits strictly higher in the
// workflow than current. Unknown statuses are never forward.
func IsForwardMovement(current, target domain.TicketStatus) bool {
	cur, ok := workflowRank[current]
	if !ok {
		return false
	}
	next, ok := workflowRank[target]
	if !ok {
		return false
	}
	return next > cur
}

// CanTransition authorizes a status change for the given role and ticket
// relationship. Callers must not pass no-op transitions (current == target);
// those are not status changes and skip this check entirely.
//
// Rules, in priority order:
//   - ADMIN may perform any transition, including APPROVED<->REJECTED.
//   - APPROVER on their own ticket may move anywhere except backward out of
//     a decided state (APPROVED/REJECTED to PENDING/DRAFT).
//   - APPROVER on someone else's ticket may only move strictly forward, and
//     never out of DRAFT.
//   - REQUESTER may only submit their own DRAFT ticket to PENDING.
func CanTransition(role domain.UserRole, isOwnTicket bool, current, target domain.TicketStatus) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleApprover:
		if isOwnTicket {
			decided := current == domain.TicketStatusApproved || current == domain.TicketStatusRejected
			backward := target == domain.TicketStatusPending || target == domain.TicketStatusDraft
			return !(decided && backward)
		}
		return current != domain.TicketStatusDraft && IsForwardMovement(current, target)
	case domain.RoleRequester:
		return isOwnTicket &&
			current == domain.TicketStatusDraft &&
			target == domain.TicketStatusPending
	}
	return false
}
