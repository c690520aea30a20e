package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/xendit"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

type checkoutService struct {
	repos    *repository.Repositories
	payments PaymentGateway
	cfg      *config.Config
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(repos *repository.Repositories, payments PaymentGateway, cfg *config.Config, logger *zap.Logger) *checkoutService {
	return &checkoutService{
		repos:    repos,
		payments: payments,
		cfg:      cfg,
		logger:   logger,
	}
}

// Checkout creates a PENDING order with immutable item snapshots and issues a
// payment invoice for it. The order total is computed server side.
func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	itemsTotal := 0.0
	for _, item := range req.Items {
		itemsTotal += item.Price * float64(item.Quantity)
	}

	order := &domain.Order{
		Status:        domain.OrderStatusPending,
		TotalAmount:   itemsTotal + req.ShippingCost,
		ShippingCost:  req.ShippingCost,
		CustomerName:  strings.TrimSpace(req.Customer.Name),
		CustomerEmail: strings.TrimSpace(req.Customer.Email),
		CustomerPhone: strings.TrimSpace(req.Customer.Phone),
		ShippingAddress: domain.ShippingAddress{
			Street:     req.Shipping.Street,
			City:       req.Shipping.City,
			Province:   req.Shipping.Province,
			PostalCode: req.Shipping.PostalCode,
			AreaID:     req.Shipping.AreaID,
		},
		IsLocalDelivery: isLocalZone(s.cfg.Shipping, req.Shipping.City),
	}
	if req.Courier != nil {
		order.Courier = &domain.CourierSelection{
			CompanyCode:   req.Courier.CompanyCode,
			CompanyName:   req.Courier.CompanyName,
			ServiceCode:   req.Courier.ServiceCode,
			ServiceName:   req.Courier.ServiceName,
			EstimatedDays: req.Courier.EstimatedDays,
		}
	}

	s.logger.Info("Creating order", zap.String("customer_email", order.CustomerEmail), zap.Float64("total", order.TotalAmount))
	if err := s.repos.Order.Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}

	items := make([]*domain.OrderItem, 0, len(req.Items))
	invoiceItems := make([]xendit.InvoiceItem, 0, len(req.Items))
	for _, cartItem := range req.Items {
		items = append(items, &domain.OrderItem{
			OrderID:     order.ID,
			ProductID:   cartItem.ProductID,
			Name:        cartItem.Name,
			Price:       cartItem.Price,
			Quantity:    cartItem.Quantity,
			WeightGrams: cartItem.WeightGrams,
		})
		invoiceItems = append(invoiceItems, xendit.InvoiceItem{
			Name:     cartItem.Name,
			Quantity: cartItem.Quantity,
			Price:    cartItem.Price,
		})
	}
	if err := s.repos.OrderItem.CreateBatch(ctx, items); err != nil {
		s.logger.Error("Failed to create order items", zap.Error(err))
		return nil, err
	}

	invoice, err := s.payments.CreateInvoice(ctx, xendit.CreateInvoiceRequest{
		ExternalID:         order.ID.String(),
		Amount:             order.TotalAmount,
		PayerEmail:         order.CustomerEmail,
		Description:        fmt.Sprintf("Kagounga order %s", order.ID),
		SuccessRedirectURL: s.cfg.Checkout.SuccessRedirectURL,
		FailureRedirectURL: s.cfg.Checkout.FailureRedirectURL,
		Customer: &xendit.Customer{
			GivenNames:   order.CustomerName,
			Email:        order.CustomerEmail,
			MobileNumber: order.CustomerPhone,
		},
		Items: invoiceItems,
	})
	if err != nil {
		s.logger.Error("Failed to create payment invoice", zap.Error(err), zap.String("order_id", order.ID.String()))
		return nil, &errors.ErrExternalProvider{Provider: "xendit", Message: err.Error()}
	}

	if err := s.repos.Order.SetPaymentInvoice(ctx, order.ID, invoice.ID, invoice.InvoiceURL); err != nil {
		return nil, err
	}
	order.PaymentInvoiceID = &invoice.ID
	order.PaymentInvoiceURL = &invoice.InvoiceURL

	event := &domain.OrderEvent{
		OrderID:   order.ID,
		EventType: "order_created",
		EventData: map[string]interface{}{
			"status":     order.Status,
			"total":      order.TotalAmount,
			"invoice_id": invoice.ID,
		},
	}
	s.repos.OrderEvent.Create(ctx, event)

	return order, nil
}

func validateCheckout(req CheckoutRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.Customer.Name) == "" {
		fields["customer.name"] = "required"
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		fields["customer.email"] = "required"
	}
	if strings.TrimSpace(req.Shipping.Street) == "" {
		fields["shipping.street"] = "required"
	}
	if strings.TrimSpace(req.Shipping.City) == "" {
		fields["shipping.city"] = "required"
	}
	if len(req.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	if req.ShippingCost < 0 {
		fields["shipping_cost"] = "must be non-negative"
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			fields["items.quantity"] = "must be positive"
		}
		if item.Price < 0 {
			fields["items.price"] = "must be non-negative"
		}
	}
	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "invalid checkout request", Fields: fields}
	}
	return nil
}

// isLocalZone reports whether a destination city falls in the configured
// local-delivery zone.
func isLocalZone(cfg config.ShippingConfig, city string) bool {
	if cfg.LocalZoneCity == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(city), cfg.LocalZoneCity)
}
