package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	apperrors "github.com/haidar038/kagounga-sub001/pkg/errors"
)

func seedPaidOrderWithRef(t *testing.T, orders *fakeOrderRepo) *domain.Order {
	t.Helper()
	order := seedOrder(t, orders, domain.OrderStatusPaid)
	ref := "pay-abc"
	orders.orders[order.ID].PaymentReferenceID = &ref
	return order
}

func seedRefund(t *testing.T, svc *refundService, order *domain.Order, amount float64) *domain.RefundRequest {
	t.Helper()
	refund, err := svc.CreateRequest(context.Background(), order.ID, "cs@kagounga.id", domain.RefundReasonRequestedByCustomer, nil, amount)
	require.NoError(t, err)
	return refund
}

func TestCreateRequest_RejectsUnknownReason(t *testing.T) {
	repos, orders, _, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)

	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())
	_, err := svc.CreateRequest(context.Background(), order.ID, "cs", domain.RefundReason("BECAUSE"), nil, 1000)
	var valErr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &valErr)
}

func TestCreateRequest_AmountBounds(t *testing.T) {
	repos, orders, _, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders) // total 150000

	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	_, err := svc.CreateRequest(context.Background(), order.ID, "cs", domain.RefundReasonOther, nil, 0)
	var valErr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &valErr)

	_, err = svc.CreateRequest(context.Background(), order.ID, "cs", domain.RefundReasonOther, nil, 150001)
	assert.ErrorAs(t, err, &valErr)

	refund, err := svc.CreateRequest(context.Background(), order.ID, "cs", domain.RefundReasonOther, nil, 150000)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusPending, refund.Status)
}

func TestReview_ApproveAndReject(t *testing.T) {
	repos, orders, _, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	approved, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusApproved, approved.Status)

	// A second review finds the request no longer pending
	_, err = svc.Review(context.Background(), refund.ID, false, "admin", nil)
	var precondErr *apperrors.ErrPreconditionFailed
	assert.ErrorAs(t, err, &precondErr)
}

func TestProcess_RequiresApproval(t *testing.T) {
	repos, orders, _, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())
	refund := seedRefund(t, svc, order, 50000)

	_, err := svc.Process(context.Background(), refund.ID)
	var precondErr *apperrors.ErrPreconditionFailed
	assert.ErrorAs(t, err, &precondErr)
}

func TestProcess_SubmitsWithIdempotencyKey(t *testing.T) {
	repos, orders, refunds, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	payments := &fakePayments{}
	svc := NewRefundService(repos, payments, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusProcessing, processed.Status)
	require.NotNil(t, processed.GatewayRefundID)

	require.Len(t, payments.refundKeys, 1)
	assert.Equal(t, refund.ID.String(), payments.refundKeys[0], "idempotency key must be the refund request id")

	stored, err := refunds.GetByID(context.Background(), refund.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentReferenceID)
	assert.Equal(t, "pay-abc", *stored.PaymentReferenceID)
}

func TestProcess_GatewayRejectionMarksFailed(t *testing.T) {
	repos, orders, _, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	payments := &fakePayments{failRefund: errors.New("INSUFFICIENT_BALANCE")}
	svc := NewRefundService(repos, payments, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), refund.ID)
	require.NoError(t, err, "a gateway rejection resolves the request, it is not a caller error")
	assert.Equal(t, domain.RefundStatusFailed, processed.Status)
	require.NotNil(t, processed.AdminNotes)
	assert.Contains(t, *processed.AdminNotes, "gateway rejected refund")
}

func TestProcess_NoPaymentReferenceFails(t *testing.T) {
	repos, orders, refunds, _ := newFakeRepos()
	order := seedOrder(t, orders, domain.OrderStatusPaid) // no payment reference stored
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), refund.ID)
	var precondErr *apperrors.ErrPreconditionFailed
	require.ErrorAs(t, err, &precondErr)

	stored, _ := refunds.GetByID(context.Background(), refund.ID)
	assert.Equal(t, domain.RefundStatusFailed, stored.Status)
}

func TestResolve_FullRefundMovesOrderToRefunded(t *testing.T) {
	repos, orders, _, events := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 150000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)

	outcome, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "SUCCEEDED", "")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	updatedOrder, _ := orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusRefunded, updatedOrder.Status)
	assert.Equal(t, 1, events.countByType("refund_completed"))
}

func TestResolve_PartialRefundKeepsOrderStatus(t *testing.T) {
	repos, orders, _, events := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)

	outcome, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "SUCCEEDED", "")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	updatedOrder, _ := orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPaid, updatedOrder.Status, "partial refund must not change order status")
	assert.Equal(t, 1, events.countByType("partial_refund"))
	assert.Equal(t, 0, events.countByType("refund_completed"))
}

func TestResolve_RedeliveryIsNoOp(t *testing.T) {
	repos, orders, _, events := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 150000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)

	first, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "SUCCEEDED", "")
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "SUCCEEDED", "")
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, 1, events.countByType("refund_completed"))
}

func TestResolve_FailureRecordsCode(t *testing.T) {
	repos, orders, refunds, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)

	outcome, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "FAILED", "REFUND_TEMPORARILY_UNAVAILABLE")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	stored, _ := refunds.GetByID(context.Background(), refund.ID)
	assert.Equal(t, domain.RefundStatusFailed, stored.Status)
	require.NotNil(t, stored.AdminNotes)
	assert.Contains(t, *stored.AdminNotes, "REFUND_TEMPORARILY_UNAVAILABLE")

	updatedOrder, _ := orders.GetByID(context.Background(), order.ID)
	assert.Equal(t, domain.OrderStatusPaid, updatedOrder.Status)
}

func TestResolve_UnknownRefundAcknowledged(t *testing.T) {
	repos, _, _, _ := newFakeRepos()
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	outcome, err := svc.Resolve(context.Background(), "", "rfd-missing", "SUCCEEDED", "")
	require.NoError(t, err)
	assert.True(t, outcome.Ignored)
}

func TestResolve_PendingStatusAcknowledged(t *testing.T) {
	repos, orders, refunds, _ := newFakeRepos()
	order := seedPaidOrderWithRef(t, orders)
	svc := NewRefundService(repos, &fakePayments{}, zap.NewNop())

	refund := seedRefund(t, svc, order, 50000)
	_, err := svc.Review(context.Background(), refund.ID, true, "admin", nil)
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), refund.ID)
	require.NoError(t, err)

	outcome, err := svc.Resolve(context.Background(), refund.ID.String(), "rfd-1", "PENDING", "")
	require.NoError(t, err)
	assert.True(t, outcome.Ignored)

	stored, _ := refunds.GetByID(context.Background(), refund.ID)
	assert.Equal(t, domain.RefundStatusProcessing, stored.Status)
}
