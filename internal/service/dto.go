package service

import (
	"context"
	"time"

	"github.com/haidar038/kagounga-sub001/internal/biteship"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/xendit"
)

// PaymentGateway is the slice of the payment provider the services need.
// Satisfied by *xendit.Client; tests substitute a double.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req xendit.CreateInvoiceRequest) (*xendit.Invoice, error)
	CreateRefund(ctx context.Context, idempotencyKey string, req xendit.CreateRefundRequest) (*xendit.Refund, error)
}

// ShippingProvider is the slice of the courier aggregator the services need.
// Satisfied by *biteship.Client; tests substitute a double.
type ShippingProvider interface {
	GetRates(ctx context.Context, req biteship.RatesRequest) ([]biteship.Rate, error)
	CreateOrder(ctx context.Context, req biteship.CreateOrderRequest) (*biteship.ShipmentOrder, error)
	CancelOrder(ctx context.Context, orderID, reason string) error
	Track(ctx context.Context, trackingID string) (*biteship.Tracking, error)
}

// CheckoutRequest is a storefront checkout submission
type CheckoutRequest struct {
	Customer struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Shipping struct {
		Street     string `json:"street" binding:"required"`
		City       string `json:"city" binding:"required"`
		Province   string `json:"province"`
		PostalCode string `json:"postal_code"`
		AreaID     string `json:"area_id"`
	} `json:"shipping"`
	Courier *struct {
		CompanyCode   string `json:"company_code"`
		CompanyName   string `json:"company_name"`
		ServiceCode   string `json:"service_code"`
		ServiceName   string `json:"service_name"`
		EstimatedDays string `json:"estimated_days"`
	} `json:"courier"`
	ShippingCost float64        `json:"shipping_cost"`
	Items        []CheckoutItem `json:"items" binding:"required"`
}

type CheckoutItem struct {
	ProductID   string  `json:"product_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity" binding:"required"`
	WeightGrams int     `json:"weight_grams"`
}

// RateOption is a caller-facing courier pricing option
type RateOption struct {
	CompanyCode   string  `json:"company_code"`
	CompanyName   string  `json:"company_name"`
	ServiceCode   string  `json:"service_code"`
	ServiceName   string  `json:"service_name"`
	Price         float64 `json:"price"`
	EstimatedDays string  `json:"estimated_days,omitempty"`
	IsLocal       bool    `json:"isLocal"`
}

// TrackingHistoryEntry is one step of the caller-facing tracking history
type TrackingHistoryEntry struct {
	Status string     `json:"status"`
	Note   string     `json:"note,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
}

// TrackingInfo is the caller-facing tracking representation
type TrackingInfo struct {
	OrderID        string                 `json:"order_id"`
	Status         domain.OrderStatus     `json:"status"`
	TrackingNumber string                 `json:"tracking_number,omitempty"`
	Courier        string                 `json:"courier,omitempty"`
	IsLocal        bool                   `json:"is_local"`
	History        []TrackingHistoryEntry `json:"history"`
}

// WebhookOutcome reports how a webhook payload was applied
type WebhookOutcome struct {
	OrderID string
	Applied bool
	Ignored bool
	Reason  string
}
