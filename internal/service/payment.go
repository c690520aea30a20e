package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

type paymentService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewPaymentService creates a new payment reconciliation service
func NewPaymentService(repos *repository.Repositories, logger *zap.Logger) *paymentService {
	return &paymentService{
		repos:  repos,
		logger: logger,
	}
}

// invoiceStatusToOrderStatus maps the gateway's invoice status vocabulary to
// the order state machine. The bool is false for statuses we acknowledge
// without mutation.
func invoiceStatusToOrderStatus(gatewayStatus string) (domain.OrderStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(gatewayStatus)) {
	case "PAID", "SETTLED":
		return domain.OrderStatusPaid, true
	case "EXPIRED":
		return domain.OrderStatusExpired, true
	case "FAILED":
		return domain.OrderStatusFailed, true
	default:
		return "", false
	}
}

// ApplyInvoiceCallback applies a payment status webhook. Safe under
// at-least-once delivery: the status write is a compare-and-set from PENDING,
// so a re-delivered payload is a no-op and writes no duplicate audit row.
func (s *paymentService) ApplyInvoiceCallback(ctx context.Context, externalID, gatewayStatus, paymentID string) (*WebhookOutcome, error) {
	orderID, err := uuid.Parse(externalID)
	if err != nil {
		return &WebhookOutcome{Ignored: true, Reason: "external_id is not an order id"}, nil
	}

	target, known := invoiceStatusToOrderStatus(gatewayStatus)
	if !known {
		s.logger.Info("Ignoring unrecognized invoice status",
			zap.String("order_id", orderID.String()), zap.String("status", gatewayStatus))
		return &WebhookOutcome{OrderID: orderID.String(), Ignored: true, Reason: "unrecognized status"}, nil
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); ok {
			return &WebhookOutcome{OrderID: orderID.String(), Ignored: true, Reason: "order not found"}, nil
		}
		return nil, err
	}

	applied, err := s.repos.Order.UpdateStatusFrom(ctx, order.ID, []domain.OrderStatus{domain.OrderStatusPending}, target)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Already advanced by an earlier delivery; acknowledge without
		// duplicating the audit trail.
		return &WebhookOutcome{OrderID: orderID.String(), Applied: false, Reason: "order not pending"}, nil
	}

	if paymentID != "" && target == domain.OrderStatusPaid {
		if err := s.repos.Order.SetPaymentReference(ctx, order.ID, paymentID); err != nil {
			s.logger.Warn("Failed to store payment reference", zap.Error(err), zap.String("order_id", orderID.String()))
		}
	}

	event := &domain.OrderEvent{
		OrderID:   order.ID,
		EventType: "payment_status",
		EventData: map[string]interface{}{
			"from":           domain.OrderStatusPending,
			"to":             target,
			"gateway_status": gatewayStatus,
		},
	}
	s.repos.OrderEvent.Create(ctx, event)

	s.logger.Info("Applied payment status",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(target)))
	return &WebhookOutcome{OrderID: orderID.String(), Applied: true}, nil
}
