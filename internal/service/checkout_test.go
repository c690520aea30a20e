package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	apperrors "github.com/haidar038/kagounga-sub001/pkg/errors"
)

func checkoutTestConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			SuccessRedirectURL: "https://kagounga.id/checkout/success",
			FailureRedirectURL: "https://kagounga.id/checkout/failed",
		},
		Shipping: shippingTestConfig(),
	}
}

func validCheckoutRequest() CheckoutRequest {
	var req CheckoutRequest
	req.Customer.Name = "Budi Santoso"
	req.Customer.Email = "budi@example.com"
	req.Customer.Phone = "+62811111111"
	req.Shipping.Street = "Jl. Merdeka 10"
	req.Shipping.City = "Surabaya"
	req.Shipping.PostalCode = "60111"
	req.ShippingCost = 42000
	req.Items = []CheckoutItem{
		{ProductID: "sambal-roa-250", Name: "Sambal roa", Price: 45000, Quantity: 2, WeightGrams: 250},
		{ProductID: "kenari-100", Name: "Kue kenari", Price: 30000, Quantity: 1, WeightGrams: 100},
	}
	return req
}

func TestCheckout_ComputesTotalServerSide(t *testing.T) {
	repos, orders, _, events := newFakeRepos()
	payments := &fakePayments{}

	svc := NewCheckoutService(repos, payments, checkoutTestConfig(), zap.NewNop())
	order, err := svc.Checkout(context.Background(), validCheckoutRequest())
	require.NoError(t, err)

	// 2*45000 + 30000 + 42000 shipping
	assert.Equal(t, 162000.0, order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.NotNil(t, order.PaymentInvoiceID)
	require.NotNil(t, order.PaymentInvoiceURL)
	assert.False(t, order.IsLocalDelivery)
	assert.Equal(t, 1, payments.invoiceCalls)
	assert.Equal(t, 1, events.countByType("order_created"))

	items, err := repos.OrderItem.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	stored, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)
}

func TestCheckout_LocalZoneFlagged(t *testing.T) {
	repos, _, _, _ := newFakeRepos()

	req := validCheckoutRequest()
	req.Shipping.City = "Ternate"

	svc := NewCheckoutService(repos, &fakePayments{}, checkoutTestConfig(), zap.NewNop())
	order, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, order.IsLocalDelivery)
}

func TestCheckout_ValidationFailures(t *testing.T) {
	repos, _, _, _ := newFakeRepos()
	svc := NewCheckoutService(repos, &fakePayments{}, checkoutTestConfig(), zap.NewNop())

	req := validCheckoutRequest()
	req.Customer.Email = ""
	req.Items = nil
	_, err := svc.Checkout(context.Background(), req)

	var valErr *apperrors.ErrValidation
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "customer.email")
	assert.Contains(t, valErr.Fields, "items")
}

func TestCheckout_NegativeQuantityRejected(t *testing.T) {
	repos, _, _, _ := newFakeRepos()
	svc := NewCheckoutService(repos, &fakePayments{}, checkoutTestConfig(), zap.NewNop())

	req := validCheckoutRequest()
	req.Items[0].Quantity = 0
	_, err := svc.Checkout(context.Background(), req)

	var valErr *apperrors.ErrValidation
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields, "items.quantity")
}

func TestCheckout_GatewayFailureSurfaced(t *testing.T) {
	repos, _, _, _ := newFakeRepos()
	payments := &fakePayments{failInvoice: errors.New("api key rejected")}

	svc := NewCheckoutService(repos, payments, checkoutTestConfig(), zap.NewNop())
	_, err := svc.Checkout(context.Background(), validCheckoutRequest())

	var provErr *apperrors.ErrExternalProvider
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "xendit", provErr.Provider)
}

func TestCheckout_CourierSelectionStored(t *testing.T) {
	repos, _, _, _ := newFakeRepos()

	req := validCheckoutRequest()
	req.Courier = &struct {
		CompanyCode   string `json:"company_code"`
		CompanyName   string `json:"company_name"`
		ServiceCode   string `json:"service_code"`
		ServiceName   string `json:"service_name"`
		EstimatedDays string `json:"estimated_days"`
	}{
		CompanyCode: "jne", CompanyName: "JNE", ServiceCode: "reg", ServiceName: "Regular", EstimatedDays: "2-3",
	}

	svc := NewCheckoutService(repos, &fakePayments{}, checkoutTestConfig(), zap.NewNop())
	order, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, order.Courier)
	assert.Equal(t, "jne", order.Courier.CompanyCode)
}
