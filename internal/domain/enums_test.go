package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusExpired))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusFailed))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))

	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusPaid.CanTransitionTo(OrderStatusRefunded))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPending))

	assert.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusProcessing))

	// Delivered may still be refunded, nothing else
	assert.True(t, OrderStatusDelivered.CanTransitionTo(OrderStatusRefunded))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	terminals := []OrderStatus{OrderStatusExpired, OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded}
	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range allOrderStatuses {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTransitionSourcesFor(t *testing.T) {
	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPending},
		TransitionSourcesFor(OrderStatusPaid))

	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered},
		TransitionSourcesFor(OrderStatusRefunded))

	assert.ElementsMatch(t,
		[]OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped},
		TransitionSourcesFor(OrderStatusCancelled))

	assert.Empty(t, TransitionSourcesFor(OrderStatusPending), "nothing transitions back to PENDING")
}

func TestOrderStatusIsValid(t *testing.T) {
	for _, s := range allOrderStatuses {
		assert.True(t, s.IsValid())
	}
	assert.False(t, OrderStatus("SHIPPING").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestRefundStatusTransitions(t *testing.T) {
	assert.True(t, RefundStatusPending.CanTransitionTo(RefundStatusApproved))
	assert.True(t, RefundStatusPending.CanTransitionTo(RefundStatusRejected))
	assert.False(t, RefundStatusPending.CanTransitionTo(RefundStatusProcessing))

	assert.True(t, RefundStatusApproved.CanTransitionTo(RefundStatusProcessing))
	assert.False(t, RefundStatusApproved.CanTransitionTo(RefundStatusCompleted))

	assert.True(t, RefundStatusProcessing.CanTransitionTo(RefundStatusCompleted))
	assert.True(t, RefundStatusProcessing.CanTransitionTo(RefundStatusFailed))

	for _, terminal := range []RefundStatus{RefundStatusRejected, RefundStatusCompleted, RefundStatusFailed} {
		assert.False(t, terminal.CanTransitionTo(RefundStatusPending))
		assert.False(t, terminal.CanTransitionTo(RefundStatusProcessing))
	}
}

func TestRefundReasonIsValid(t *testing.T) {
	valid := []RefundReason{
		RefundReasonRequestedByCustomer,
		RefundReasonDuplicate,
		RefundReasonFraudulent,
		RefundReasonProductIssue,
		RefundReasonOther,
	}
	for _, r := range valid {
		assert.True(t, r.IsValid())
	}
	assert.False(t, RefundReason("BECAUSE").IsValid())
}
