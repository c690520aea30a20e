package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haidar038/kagounga-sub001/internal/biteship"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/xendit"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

// In-memory repositories for service tests. The conditional-update methods
// mirror the SQL semantics: check-and-write under a lock, report applied.

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) GetByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerEmail != email {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return order, nil
}

func (r *fakeOrderRepo) GetByShipmentOrderID(_ context.Context, shipmentOrderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.ShipmentOrderID != nil && *order.ShipmentOrderID == shipmentOrderID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: shipmentOrderID}
}

func (r *fakeOrderRepo) List(_ context.Context, limit, offset int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		cp := *order
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.Status == status {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusFrom(_ context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	for _, src := range from {
		if order.Status == src {
			order.Status = to
			order.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) SetPaymentInvoice(_ context.Context, id uuid.UUID, invoiceID, invoiceURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.PaymentInvoiceID = &invoiceID
	order.PaymentInvoiceURL = &invoiceURL
	return nil
}

func (r *fakeOrderRepo) SetPaymentReference(_ context.Context, id uuid.UUID, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.PaymentReferenceID = &referenceID
	return nil
}

func (r *fakeOrderRepo) SetShipmentOrderID(_ context.Context, id uuid.UUID, shipmentOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.ShipmentOrderID = &shipmentOrderID
	return nil
}

func (r *fakeOrderRepo) SetTrackingNumberIfEmpty(_ context.Context, id uuid.UUID, trackingNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.TrackingNumber != nil && *order.TrackingNumber != "" {
		return false, nil
	}
	order.TrackingNumber = &trackingNumber
	return true, nil
}

func (r *fakeOrderRepo) MarkShippedIfUnset(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.ShippedAt != nil {
		return false, nil
	}
	order.ShippedAt = &at
	return true, nil
}

func (r *fakeOrderRepo) MarkDeliveredIfUnset(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.DeliveredAt != nil {
		return false, nil
	}
	order.DeliveredAt = &at
	return true, nil
}

func (r *fakeOrderRepo) SetGuestTrackingToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.GuestTrackingToken = &token
	order.GuestTrackingExpires = &expiresAt
	return nil
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID][]*domain.OrderItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID][]*domain.OrderItem)}
}

func (r *fakeItemRepo) CreateBatch(_ context.Context, items []*domain.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		cp := *item
		r.items[item.OrderID] = append(r.items[item.OrderID], &cp)
	}
	return nil
}

func (r *fakeItemRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.OrderItem(nil), r.items[orderID]...), nil
}

type fakeRefundRepo struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*domain.RefundRequest
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{refunds: make(map[uuid.UUID]*domain.RefundRequest)}
}

func (r *fakeRefundRepo) Create(_ context.Context, refund *domain.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	now := time.Now()
	refund.CreatedAt = now
	refund.UpdatedAt = now
	cp := *refund
	r.refunds[refund.ID] = &cp
	return nil
}

func (r *fakeRefundRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "refund_request", ID: id.String()}
	}
	cp := *refund
	return &cp, nil
}

func (r *fakeRefundRepo) GetByGatewayRefundID(_ context.Context, gatewayRefundID string) (*domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, refund := range r.refunds {
		if refund.GatewayRefundID != nil && *refund.GatewayRefundID == gatewayRefundID {
			cp := *refund
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "refund_request", ID: gatewayRefundID}
}

func (r *fakeRefundRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RefundRequest
	for _, refund := range r.refunds {
		if refund.OrderID == orderID {
			cp := *refund
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) ListByStatus(_ context.Context, status domain.RefundStatus, limit, offset int) ([]*domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RefundRequest
	for _, refund := range r.refunds {
		if refund.Status == status {
			cp := *refund
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRefundRepo) Review(_ context.Context, id uuid.UUID, to domain.RefundStatus, reviewedBy string, note *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok || refund.Status != domain.RefundStatusPending {
		return false, nil
	}
	refund.Status = to
	refund.ReviewedBy = &reviewedBy
	now := time.Now()
	refund.ReviewedAt = &now
	refund.AdminNotes = note
	return true, nil
}

func (r *fakeRefundRepo) StartProcessing(_ context.Context, id uuid.UUID, paymentReferenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok || refund.Status != domain.RefundStatusApproved {
		return false, nil
	}
	refund.Status = domain.RefundStatusProcessing
	if paymentReferenceID != "" {
		refund.PaymentReferenceID = &paymentReferenceID
	}
	return true, nil
}

func (r *fakeRefundRepo) SetGatewayRefund(_ context.Context, id uuid.UUID, gatewayRefundID string, channel *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "refund_request", ID: id.String()}
	}
	refund.GatewayRefundID = &gatewayRefundID
	refund.RefundChannel = channel
	return nil
}

func (r *fakeRefundRepo) MarkCompletedIfProcessing(_ context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok || refund.Status != domain.RefundStatusProcessing {
		return false, nil
	}
	refund.Status = domain.RefundStatusCompleted
	refund.CompletedAt = &completedAt
	return true, nil
}

func (r *fakeRefundRepo) MarkFailedIfProcessing(_ context.Context, id uuid.UUID, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[id]
	if !ok || refund.Status != domain.RefundStatusProcessing {
		return false, nil
	}
	refund.Status = domain.RefundStatusFailed
	if refund.AdminNotes != nil {
		joined := *refund.AdminNotes + "\n" + note
		refund.AdminNotes = &joined
	} else {
		refund.AdminNotes = &note
	}
	return true, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*domain.OrderEvent
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *fakeEventRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.OrderEvent
	for _, event := range r.events {
		if event.OrderID == orderID {
			cp := *event
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) countByType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			n++
		}
	}
	return n
}

type fakeCheckoutKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.CheckoutKey
}

func newFakeCheckoutKeyRepo() *fakeCheckoutKeyRepo {
	return &fakeCheckoutKeyRepo{keys: make(map[string]*domain.CheckoutKey)}
}

func (r *fakeCheckoutKeyRepo) GetByKey(_ context.Context, key string) (*domain.CheckoutKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[key]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCheckoutKeyRepo) Create(_ context.Context, key *domain.CheckoutKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *key
	r.keys[key.Key] = &cp
	return nil
}

func newFakeRepos() (*repository.Repositories, *fakeOrderRepo, *fakeRefundRepo, *fakeEventRepo) {
	orders := newFakeOrderRepo()
	refunds := newFakeRefundRepo()
	events := &fakeEventRepo{}
	repos := &repository.Repositories{
		Order:         orders,
		OrderItem:     newFakeItemRepo(),
		RefundRequest: refunds,
		OrderEvent:    events,
		CheckoutKey:   newFakeCheckoutKeyRepo(),
	}
	return repos, orders, refunds, events
}

// Gateway doubles

type fakePayments struct {
	mu             sync.Mutex
	invoiceCalls   int
	refundCalls    int
	refundKeys     []string
	failInvoice    error
	failRefund     error
	refundResponse *xendit.Refund
}

func (p *fakePayments) CreateInvoice(_ context.Context, req xendit.CreateInvoiceRequest) (*xendit.Invoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invoiceCalls++
	if p.failInvoice != nil {
		return nil, p.failInvoice
	}
	return &xendit.Invoice{
		ID:         "inv-" + req.ExternalID,
		ExternalID: req.ExternalID,
		Status:     "PENDING",
		InvoiceURL: "https://checkout.example.com/" + req.ExternalID,
	}, nil
}

func (p *fakePayments) CreateRefund(_ context.Context, idempotencyKey string, req xendit.CreateRefundRequest) (*xendit.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundCalls++
	p.refundKeys = append(p.refundKeys, idempotencyKey)
	if p.failRefund != nil {
		return nil, p.failRefund
	}
	if p.refundResponse != nil {
		return p.refundResponse, nil
	}
	return &xendit.Refund{
		ID:          "rfd-" + req.ReferenceID,
		ReferenceID: req.ReferenceID,
		Status:      "PENDING",
		Amount:      req.Amount,
		ChannelCode: "ID_OVO",
	}, nil
}

type fakeShipping struct {
	mu          sync.Mutex
	rateCalls   int
	createCalls int
	cancelCalls int
	trackCalls  int
	lastTracked string
	failRates   error
	failCreate  error
	failCancel  error
	failTrack   error
	rates       []biteship.Rate
	shipment    *biteship.ShipmentOrder
	tracking    *biteship.Tracking
}

func (s *fakeShipping) GetRates(_ context.Context, req biteship.RatesRequest) ([]biteship.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateCalls++
	if s.failRates != nil {
		return nil, s.failRates
	}
	return s.rates, nil
}

func (s *fakeShipping) CreateOrder(_ context.Context, req biteship.CreateOrderRequest) (*biteship.ShipmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	if s.shipment != nil {
		return s.shipment, nil
	}
	shipment := &biteship.ShipmentOrder{ID: fmt.Sprintf("bts-%d", s.createCalls), Status: "confirmed"}
	shipment.Courier.WaybillID = "WB-001"
	return shipment, nil
}

func (s *fakeShipping) CancelOrder(_ context.Context, orderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCalls++
	return s.failCancel
}

func (s *fakeShipping) Track(_ context.Context, trackingID string) (*biteship.Tracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackCalls++
	s.lastTracked = trackingID
	if s.failTrack != nil {
		return nil, s.failTrack
	}
	if s.tracking != nil {
		return s.tracking, nil
	}
	return &biteship.Tracking{Status: "confirmed"}, nil
}
