package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/xendit"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

type refundService struct {
	repos    *repository.Repositories
	payments PaymentGateway
	logger   *zap.Logger
}

// NewRefundService creates a new refund workflow service
func NewRefundService(repos *repository.Repositories, payments PaymentGateway, logger *zap.Logger) *refundService {
	return &refundService{
		repos:    repos,
		payments: payments,
		logger:   logger,
	}
}

// CreateRequest raises a refund request against a settled order
func (s *refundService) CreateRequest(ctx context.Context, orderID uuid.UUID, requestedBy string, reason domain.RefundReason, reasonNote *string, amount float64) (*domain.RefundRequest, error) {
	if !reason.IsValid() {
		return nil, &errors.ErrValidation{Message: fmt.Sprintf("unknown refund reason %q", reason)}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if amount <= 0 || amount > order.TotalAmount {
		return nil, &errors.ErrValidation{
			Message: fmt.Sprintf("refund amount must be > 0 and <= order total %.2f", order.TotalAmount),
			Fields:  map[string]string{"amount": "out of range"},
		}
	}

	refund := &domain.RefundRequest{
		OrderID:     order.ID,
		RequestedBy: requestedBy,
		Reason:      reason,
		ReasonNote:  reasonNote,
		Amount:      amount,
		Status:      domain.RefundStatusPending,
	}
	if err := s.repos.RefundRequest.Create(ctx, refund); err != nil {
		s.logger.Error("Failed to create refund request", zap.Error(err))
		return nil, err
	}

	s.recordEvent(ctx, order.ID, "refund_requested", map[string]interface{}{
		"refund_id": refund.ID.String(),
		"amount":    amount,
		"reason":    reason,
	})
	return refund, nil
}

// Review approves or rejects a pending request. No external call is made.
func (s *refundService) Review(ctx context.Context, refundID uuid.UUID, approve bool, reviewedBy string, note *string) (*domain.RefundRequest, error) {
	target := domain.RefundStatusRejected
	if approve {
		target = domain.RefundStatusApproved
	}

	applied, err := s.repos.RefundRequest.Review(ctx, refundID, target, reviewedBy, note)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, &errors.ErrPreconditionFailed{
			Resource: "refund_request", ID: refundID.String(),
			Message: "request is not pending",
		}
	}

	refund, err := s.repos.RefundRequest.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}
	s.recordEvent(ctx, refund.OrderID, "refund_reviewed", map[string]interface{}{
		"refund_id": refundID.String(),
		"status":    target,
	})
	return refund, nil
}

// Process submits an approved request to the payment gateway. The gateway
// reference id is the refund request id, so a retried submission cannot
// double-refund.
func (s *refundService) Process(ctx context.Context, refundID uuid.UUID) (*domain.RefundRequest, error) {
	refund, err := s.repos.RefundRequest.GetByID(ctx, refundID)
	if err != nil {
		return nil, err
	}

	order, err := s.repos.Order.GetByID(ctx, refund.OrderID)
	if err != nil {
		return nil, err
	}

	paymentRef := ""
	if order.PaymentReferenceID != nil {
		paymentRef = *order.PaymentReferenceID
	} else if order.PaymentInvoiceID != nil {
		paymentRef = *order.PaymentInvoiceID
	}

	// Claim the request: only an approved request may enter processing, and
	// only one actor wins the claim.
	claimed, err := s.repos.RefundRequest.StartProcessing(ctx, refundID, paymentRef)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, &errors.ErrPreconditionFailed{
			Resource: "refund_request", ID: refundID.String(),
			Message: "request is not approved",
		}
	}

	if paymentRef == "" {
		note := "cannot process refund: order has no payment reference"
		if _, err := s.repos.RefundRequest.MarkFailedIfProcessing(ctx, refundID, note); err != nil {
			return nil, err
		}
		return nil, &errors.ErrPreconditionFailed{
			Resource: "refund_request", ID: refundID.String(),
			Message: note,
		}
	}

	gatewayRefund, err := s.payments.CreateRefund(ctx, refundID.String(), xendit.CreateRefundRequest{
		InvoiceID:   paymentRef,
		ReferenceID: refundID.String(),
		Amount:      refund.Amount,
		Reason:      string(refund.Reason),
	})
	if err != nil {
		note := "gateway rejected refund: " + err.Error()
		s.logger.Error("Refund submission rejected", zap.Error(err), zap.String("refund_id", refundID.String()))
		if _, markErr := s.repos.RefundRequest.MarkFailedIfProcessing(ctx, refundID, note); markErr != nil {
			return nil, markErr
		}
		refund, getErr := s.repos.RefundRequest.GetByID(ctx, refundID)
		if getErr != nil {
			return nil, getErr
		}
		return refund, nil
	}

	var channel *string
	if gatewayRefund.ChannelCode != "" {
		channel = &gatewayRefund.ChannelCode
	}
	if err := s.repos.RefundRequest.SetGatewayRefund(ctx, refundID, gatewayRefund.ID, channel); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, refund.OrderID, "refund_processing", map[string]interface{}{
		"refund_id":         refundID.String(),
		"gateway_refund_id": gatewayRefund.ID,
	})

	// The gateway resolves the refund asynchronously; status stays processing
	return s.repos.RefundRequest.GetByID(ctx, refundID)
}

// refundOutcome classifies the gateway's refund status vocabulary
func refundOutcome(gatewayStatus string) (completed bool, failed bool) {
	switch strings.ToUpper(strings.TrimSpace(gatewayStatus)) {
	case "SUCCEEDED", "COMPLETED":
		return true, false
	case "FAILED":
		return false, true
	default:
		// PENDING and anything else: acknowledge only
		return false, false
	}
}

// Resolve applies the gateway's asynchronous refund outcome. Completion of a
// full refund forces the order to REFUNDED; a partial completion records an
// audit note without changing order status.
func (s *refundService) Resolve(ctx context.Context, referenceID, gatewayRefundID, gatewayStatus, failureCode string) (*WebhookOutcome, error) {
	refund, err := s.resolveRequest(ctx, referenceID, gatewayRefundID)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); ok {
			return &WebhookOutcome{Ignored: true, Reason: "refund request not found"}, nil
		}
		return nil, err
	}

	completed, failed := refundOutcome(gatewayStatus)
	switch {
	case completed:
		applied, err := s.repos.RefundRequest.MarkCompletedIfProcessing(ctx, refund.ID, time.Now())
		if err != nil {
			return nil, err
		}
		if !applied {
			return &WebhookOutcome{OrderID: refund.OrderID.String(), Applied: false, Reason: "refund not processing"}, nil
		}

		order, err := s.repos.Order.GetByID(ctx, refund.OrderID)
		if err != nil {
			return nil, err
		}
		if refund.Amount >= order.TotalAmount {
			if _, err := s.repos.Order.UpdateStatusFrom(ctx, order.ID,
				domain.TransitionSourcesFor(domain.OrderStatusRefunded), domain.OrderStatusRefunded); err != nil {
				return nil, err
			}
			s.recordEvent(ctx, order.ID, "refund_completed", map[string]interface{}{
				"refund_id": refund.ID.String(),
				"amount":    refund.Amount,
				"full":      true,
			})
		} else {
			s.recordEvent(ctx, order.ID, "partial_refund", map[string]interface{}{
				"refund_id": refund.ID.String(),
				"amount":    refund.Amount,
				"total":     order.TotalAmount,
			})
		}
		return &WebhookOutcome{OrderID: refund.OrderID.String(), Applied: true}, nil

	case failed:
		note := "gateway reported refund failure"
		if failureCode != "" {
			note += ": " + failureCode
		}
		applied, err := s.repos.RefundRequest.MarkFailedIfProcessing(ctx, refund.ID, note)
		if err != nil {
			return nil, err
		}
		if applied {
			s.recordEvent(ctx, refund.OrderID, "refund_failed", map[string]interface{}{
				"refund_id":    refund.ID.String(),
				"failure_code": failureCode,
			})
		}
		return &WebhookOutcome{OrderID: refund.OrderID.String(), Applied: applied}, nil

	default:
		return &WebhookOutcome{OrderID: refund.OrderID.String(), Ignored: true, Reason: "gateway status pending"}, nil
	}
}

// resolveRequest finds the refund request a webhook refers to, preferring our
// own reference id over the gateway's refund id.
func (s *refundService) resolveRequest(ctx context.Context, referenceID, gatewayRefundID string) (*domain.RefundRequest, error) {
	if referenceID != "" {
		if id, err := uuid.Parse(referenceID); err == nil {
			if refund, err := s.repos.RefundRequest.GetByID(ctx, id); err == nil {
				return refund, nil
			}
		}
	}
	return s.repos.RefundRequest.GetByGatewayRefundID(ctx, gatewayRefundID)
}

func (s *refundService) recordEvent(ctx context.Context, orderID uuid.UUID, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	s.repos.OrderEvent.Create(ctx, event)
}
