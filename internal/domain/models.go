package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a storefront purchase tracked through payment and fulfillment
type Order struct {
	ID              uuid.UUID
	Status          OrderStatus
	TotalAmount     float64
	ShippingCost    float64
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress ShippingAddress
	Courier         *CourierSelection
	IsLocalDelivery bool

	// Payment gateway references
	PaymentInvoiceID   *string
	PaymentInvoiceURL  *string
	PaymentReferenceID *string

	// Shipping provider references; TrackingNumber is first-writer-wins
	ShipmentOrderID *string
	TrackingNumber  *string

	// Guest tracking capability: a short-lived token minted against this order
	GuestTrackingToken   *string
	GuestTrackingExpires *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// ShippingAddress is the destination captured at checkout
type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	AreaID     string `json:"area_id,omitempty"`
}

// CourierSelection is the courier+service chosen at checkout
type CourierSelection struct {
	CompanyCode   string `json:"company_code"`
	CompanyName   string `json:"company_name"`
	ServiceCode   string `json:"service_code"`
	ServiceName   string `json:"service_name"`
	EstimatedDays string `json:"estimated_days,omitempty"`
}

// OrderItem is an immutable line item snapshot captured at checkout.
// Catalog price changes never retroactively alter historical orders.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   string
	Name        string
	Price       float64
	Quantity    int
	WeightGrams int
	CreatedAt   time.Time
}

// RefundRequest is a request to return funds for a settled order
type RefundRequest struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	RequestedBy string
	Reason      RefundReason
	ReasonNote  *string
	Amount      float64
	Status      RefundStatus

	ReviewedBy *string
	ReviewedAt *time.Time
	AdminNotes *string

	// Gateway references; set once processing begins
	GatewayRefundID    *string
	PaymentReferenceID *string
	RefundChannel      *string

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderEvent represents an audit event for an order
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	EventData map[string]interface{} // JSONB
	CreatedAt time.Time
}

// CheckoutKey stores idempotency information for checkout submissions
type CheckoutKey struct {
	Key         string
	OrderID     uuid.UUID
	RequestHash string
	CreatedAt   time.Time
}
