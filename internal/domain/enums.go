package domain

// OrderStatus represents the status of a storefront order
type OrderStatus string

const (
	// PENDING - order created, invoice issued, payment not yet confirmed
	OrderStatusPending OrderStatus = "PENDING"
	// PAID - payment gateway confirmed settlement
	OrderStatusPaid OrderStatus = "PAID"
	// EXPIRED - invoice expired before payment
	OrderStatusExpired OrderStatus = "EXPIRED"
	// FAILED - payment failed
	OrderStatusFailed OrderStatus = "FAILED"
	// PROCESSING - shipment requested, courier confirmed/allocated
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// SHIPPED - courier picked the package up
	OrderStatusShipped OrderStatus = "SHIPPED"
	// DELIVERED - courier delivered the package
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// CANCELLED - order cancelled before delivery
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// REFUNDED - full refund completed
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPaid,
		OrderStatusExpired,
		OrderStatusFailed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further automated transition is allowed
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusExpired, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPaid ||
			newStatus == OrderStatusExpired ||
			newStatus == OrderStatusFailed ||
			newStatus == OrderStatusCancelled
	case OrderStatusPaid:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusShipped ||
			newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusRefunded
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusRefunded
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusRefunded
	case OrderStatusDelivered:
		return newStatus == OrderStatusRefunded
	case OrderStatusExpired, OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return false // Terminal states
	default:
		return false
	}
}

// allOrderStatuses enumerates the closed set for source computation
var allOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusExpired,
	OrderStatusFailed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// TransitionSourcesFor returns every status from which a transition to the
// given status is allowed. Used to build conditional (compare-and-set)
// updates so concurrent webhook deliveries never force an invalid move.
func TransitionSourcesFor(to OrderStatus) []OrderStatus {
	var sources []OrderStatus
	for _, from := range allOrderStatuses {
		if from.CanTransitionTo(to) {
			sources = append(sources, from)
		}
	}
	return sources
}

// RefundStatus represents the status of a refund request
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusApproved   RefundStatus = "approved"
	RefundStatusRejected   RefundStatus = "rejected"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
)

// IsValid checks if the refund status is valid
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusPending, RefundStatusApproved, RefundStatusRejected,
		RefundStatusProcessing, RefundStatusCompleted, RefundStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a refund status transition is valid
func (s RefundStatus) CanTransitionTo(newStatus RefundStatus) bool {
	switch s {
	case RefundStatusPending:
		return newStatus == RefundStatusApproved || newStatus == RefundStatusRejected
	case RefundStatusApproved:
		return newStatus == RefundStatusProcessing
	case RefundStatusProcessing:
		return newStatus == RefundStatusCompleted || newStatus == RefundStatusFailed
	case RefundStatusRejected, RefundStatusCompleted, RefundStatusFailed:
		return false // Terminal states
	default:
		return false
	}
}

// RefundReason is the closed set of accepted refund reasons
type RefundReason string

const (
	RefundReasonRequestedByCustomer RefundReason = "REQUESTED_BY_CUSTOMER"
	RefundReasonDuplicate           RefundReason = "DUPLICATE"
	RefundReasonFraudulent          RefundReason = "FRAUDULENT"
	RefundReasonProductIssue        RefundReason = "PRODUCT_ISSUE"
	RefundReasonOther               RefundReason = "OTHER"
)

// IsValid checks if the refund reason is in the closed enum
func (r RefundReason) IsValid() bool {
	switch r {
	case RefundReasonRequestedByCustomer, RefundReasonDuplicate,
		RefundReasonFraudulent, RefundReasonProductIssue, RefundReasonOther:
		return true
	default:
		return false
	}
}
