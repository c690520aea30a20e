package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haidar038/kagounga-sub001/internal/domain"
)

// OrderRepository defines order data access methods.
//
// Status and timestamp writes are conditional updates: they take effect only
// when the row is still in the expected state, and report whether they
// applied. Webhook handlers rely on this to stay idempotent under
// at-least-once delivery.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error)
	GetByShipmentOrderID(ctx context.Context, shipmentOrderID string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)

	// UpdateStatusFrom moves the order to the target status only when the
	// current status is one of the given sources. Returns whether a row
	// changed.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)

	SetPaymentInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceURL string) error
	SetPaymentReference(ctx context.Context, id uuid.UUID, referenceID string) error
	SetShipmentOrderID(ctx context.Context, id uuid.UUID, shipmentOrderID string) error

	// SetTrackingNumberIfEmpty writes the tracking number only when none is
	// stored yet (first-writer-wins). Returns whether the write applied.
	SetTrackingNumberIfEmpty(ctx context.Context, id uuid.UUID, trackingNumber string) (bool, error)

	// MarkShippedIfUnset / MarkDeliveredIfUnset stamp the respective
	// timestamp only on first reach of that status.
	MarkShippedIfUnset(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkDeliveredIfUnset(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	SetGuestTrackingToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
}

// OrderItemRepository defines order item data access methods
type OrderItemRepository interface {
	CreateBatch(ctx context.Context, items []*domain.OrderItem) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
}

// RefundRequestRepository defines refund request data access methods
type RefundRequestRepository interface {
	Create(ctx context.Context, refund *domain.RefundRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefundRequest, error)
	GetByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*domain.RefundRequest, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.RefundRequest, error)
	ListByStatus(ctx context.Context, status domain.RefundStatus, limit, offset int) ([]*domain.RefundRequest, error)

	// Review moves a pending request to approved/rejected; applied=false
	// means the request was no longer pending.
	Review(ctx context.Context, id uuid.UUID, to domain.RefundStatus, reviewedBy string, note *string) (bool, error)

	// StartProcessing moves an approved request to processing and records the
	// payment reference the gateway call will use.
	StartProcessing(ctx context.Context, id uuid.UUID, paymentReferenceID string) (bool, error)

	SetGatewayRefund(ctx context.Context, id uuid.UUID, gatewayRefundID string, channel *string) error

	// MarkCompletedIfProcessing / MarkFailedIfProcessing resolve the
	// processing state; the failed path appends the note to admin notes.
	MarkCompletedIfProcessing(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error)
	MarkFailedIfProcessing(ctx context.Context, id uuid.UUID, note string) (bool, error)
}

// OrderEventRepository defines audit event data access methods
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error)
}

// CheckoutKeyRepository defines checkout idempotency key data access methods
type CheckoutKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.CheckoutKey, error)
	Create(ctx context.Context, key *domain.CheckoutKey) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Order         OrderRepository
	OrderItem     OrderItemRepository
	RefundRequest RefundRequestRepository
	OrderEvent    OrderEventRepository
	CheckoutKey   CheckoutKeyRepository
}
