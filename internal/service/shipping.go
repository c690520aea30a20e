package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/biteship"
	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

type shippingService struct {
	repos    *repository.Repositories
	provider ShippingProvider
	cfg      config.ShippingConfig
	logger   *zap.Logger
}

// NewShippingService creates a new shipment lifecycle service
func NewShippingService(repos *repository.Repositories, provider ShippingProvider, cfg config.ShippingConfig, logger *zap.Logger) *shippingService {
	return &shippingService{
		repos:    repos,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// courierStatusToOrderStatus maps the aggregator's status vocabulary to the
// order state machine. Total over known inputs; the bool is false for
// statuses we explicitly ignore.
func courierStatusToOrderStatus(providerStatus string) (domain.OrderStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "confirmed", "allocated", "picking_up":
		return domain.OrderStatusProcessing, true
	case "picked", "dropping_off":
		return domain.OrderStatusShipped, true
	case "delivered":
		return domain.OrderStatusDelivered, true
	case "cancelled", "returned", "rejected", "courier_not_found":
		return domain.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// CalculateRates returns courier options for a destination and item list. A
// destination inside the local zone bypasses the aggregator entirely.
func (s *shippingService) CalculateRates(ctx context.Context, destCity, destPostalCode, destAreaID string, items []CheckoutItem) ([]RateOption, error) {
	if isLocalZone(s.cfg, destCity) {
		return []RateOption{{
			CompanyCode: "local",
			CompanyName: s.cfg.LocalCourierName,
			ServiceCode: "local_delivery",
			ServiceName: "Same-day local delivery",
			Price:       s.cfg.LocalFlatRate,
			IsLocal:     true,
		}}, nil
	}

	rateItems := make([]biteship.RateItem, 0, len(items))
	for _, item := range items {
		rateItems = append(rateItems, biteship.RateItem{
			Name:     item.Name,
			Value:    item.Price,
			Weight:   item.WeightGrams,
			Quantity: item.Quantity,
		})
	}

	rates, err := s.provider.GetRates(ctx, biteship.RatesRequest{
		OriginPostalCode:      s.cfg.OriginPostalCode,
		OriginAreaID:          s.cfg.OriginAreaID,
		DestinationPostalCode: destPostalCode,
		DestinationAreaID:     destAreaID,
		Items:                 rateItems,
	})
	if err != nil {
		return nil, &errors.ErrExternalProvider{Provider: "biteship", Message: err.Error()}
	}

	options := make([]RateOption, 0, len(rates))
	for _, rate := range rates {
		options = append(options, RateOption{
			CompanyCode:   rate.CourierCode,
			CompanyName:   rate.CourierName,
			ServiceCode:   rate.CourierServiceCode,
			ServiceName:   rate.CourierServiceName,
			Price:         rate.Price,
			EstimatedDays: rate.Duration,
		})
	}
	return options, nil
}

// CreateShipment requests a courier pickup for a paid order. Local-delivery
// orders skip the external call and advance straight to PROCESSING.
func (s *shippingService) CreateShipment(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPaid && order.Status != domain.OrderStatusProcessing {
		return nil, &errors.ErrPreconditionFailed{
			Resource: "order", ID: orderID.String(),
			Message: "shipment requires a paid order, current status " + string(order.Status),
		}
	}

	if order.IsLocalDelivery {
		applied, err := s.repos.Order.UpdateStatusFrom(ctx, order.ID,
			[]domain.OrderStatus{domain.OrderStatusPaid}, domain.OrderStatusProcessing)
		if err != nil {
			return nil, err
		}
		if applied {
			s.recordEvent(ctx, order.ID, "shipment_created", map[string]interface{}{"local": true})
			order.Status = domain.OrderStatusProcessing
		}
		return order, nil
	}

	// Idempotent: an existing provider shipment is not re-created
	if order.ShipmentOrderID != nil && *order.ShipmentOrderID != "" {
		return order, nil
	}

	if order.Courier == nil {
		return nil, &errors.ErrPreconditionFailed{
			Resource: "order", ID: orderID.String(),
			Message: "no courier selected",
		}
	}

	items, err := s.repos.OrderItem.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	shipItems := make([]biteship.OrderItem, 0, len(items))
	for _, item := range items {
		shipItems = append(shipItems, biteship.OrderItem{
			Name:     item.Name,
			Value:    item.Price,
			Weight:   item.WeightGrams,
			Quantity: item.Quantity,
		})
	}

	shipment, err := s.provider.CreateOrder(ctx, biteship.CreateOrderRequest{
		OriginContactName:       s.cfg.OriginContactName,
		OriginContactPhone:      s.cfg.OriginPhone,
		OriginAddress:           s.cfg.OriginAddress,
		OriginPostalCode:        s.cfg.OriginPostalCode,
		DestinationContactName:  order.CustomerName,
		DestinationContactPhone: order.CustomerPhone,
		DestinationAddress:      order.ShippingAddress.Street + ", " + order.ShippingAddress.City,
		DestinationPostalCode:   order.ShippingAddress.PostalCode,
		CourierCompany:          order.Courier.CompanyCode,
		CourierType:             order.Courier.ServiceCode,
		DeliveryType:            "now",
		ReferenceID:             order.ID.String(),
		Items:                   shipItems,
	})
	if err != nil {
		s.logger.Error("Failed to create shipment", zap.Error(err), zap.String("order_id", orderID.String()))
		return nil, &errors.ErrExternalProvider{Provider: "biteship", Message: err.Error()}
	}

	if err := s.repos.Order.SetShipmentOrderID(ctx, order.ID, shipment.ID); err != nil {
		return nil, err
	}
	order.ShipmentOrderID = &shipment.ID

	waybill := shipment.Courier.WaybillID
	if waybill == "" {
		waybill = shipment.Courier.TrackingID
	}
	if waybill != "" {
		if applied, err := s.repos.Order.SetTrackingNumberIfEmpty(ctx, order.ID, waybill); err == nil && applied {
			order.TrackingNumber = &waybill
		}
	}

	s.recordEvent(ctx, order.ID, "shipment_created", map[string]interface{}{
		"shipment_order_id": shipment.ID,
		"waybill":           waybill,
	})

	return order, nil
}

// CancelOrder cancels an order. With no external shipment recorded this is a
// pure local transition; otherwise the provider is asked first and any
// non-idempotent provider failure leaves the order unchanged.
func (s *shippingService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status == domain.OrderStatusCancelled {
		return nil
	}
	if order.Status.IsTerminal() {
		return &errors.ErrPreconditionFailed{
			Resource: "order", ID: orderID.String(),
			Message: "cannot cancel order in terminal status " + string(order.Status),
		}
	}

	if order.ShipmentOrderID != nil && *order.ShipmentOrderID != "" {
		if err := s.provider.CancelOrder(ctx, *order.ShipmentOrderID, reason); err != nil {
			s.logger.Error("Provider cancellation failed", zap.Error(err), zap.String("order_id", orderID.String()))
			return &errors.ErrExternalProvider{Provider: "biteship", Message: err.Error()}
		}
	}

	applied, err := s.repos.Order.UpdateStatusFrom(ctx, order.ID,
		domain.TransitionSourcesFor(domain.OrderStatusCancelled), domain.OrderStatusCancelled)
	if err != nil {
		return err
	}
	if applied {
		s.recordEvent(ctx, order.ID, "status_change", map[string]interface{}{
			"from":   order.Status,
			"to":     domain.OrderStatusCancelled,
			"reason": reason,
		})
	}
	return nil
}

// Track resolves tracking history for an order. A non-empty trackingNumber
// overrides the one stored on the order. Local deliveries synthesize a
// history from the order's own timestamps; provider failures degrade to a
// minimal response built from locally known fields.
func (s *shippingService) Track(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*TrackingInfo, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	info := &TrackingInfo{
		OrderID: order.ID.String(),
		Status:  order.Status,
		IsLocal: order.IsLocalDelivery,
	}
	if trackingNumber != "" {
		info.TrackingNumber = trackingNumber
	} else if order.TrackingNumber != nil {
		info.TrackingNumber = *order.TrackingNumber
	}
	if order.Courier != nil {
		info.Courier = order.Courier.CompanyName
	}

	if order.IsLocalDelivery {
		info.History = []TrackingHistoryEntry{localHistoryEntry(order)}
		return info, nil
	}

	trackingID := info.TrackingNumber
	if trackingID == "" && order.ShipmentOrderID != nil {
		trackingID = *order.ShipmentOrderID
	}
	if trackingID == "" {
		info.History = []TrackingHistoryEntry{{
			Status: string(order.Status),
			Note:   "awaiting courier assignment",
			Time:   &order.UpdatedAt,
		}}
		return info, nil
	}

	tracking, err := s.provider.Track(ctx, trackingID)
	if err != nil {
		// Degrade gracefully rather than propagating provider failure
		s.logger.Warn("Tracking lookup failed, returning local view",
			zap.Error(err), zap.String("order_id", orderID.String()))
		info.History = []TrackingHistoryEntry{{
			Status: string(order.Status),
			Note:   "courier tracking temporarily unavailable",
			Time:   &order.UpdatedAt,
		}}
		return info, nil
	}

	info.History = make([]TrackingHistoryEntry, 0, len(tracking.History))
	for _, event := range tracking.History {
		entry := TrackingHistoryEntry{
			Status: event.Status,
			Note:   event.Note,
		}
		if ts, parseErr := time.Parse(time.RFC3339, event.UpdatedAt); parseErr == nil {
			entry.Time = &ts
		}
		info.History = append(info.History, entry)
	}
	return info, nil
}

// ApplyStatusWebhook applies a shipment status webhook. Unknown provider
// references acknowledge-and-drop; timestamps and tracking numbers are
// written at most once.
func (s *shippingService) ApplyStatusWebhook(ctx context.Context, shipmentOrderID, providerStatus, waybillID string) (*WebhookOutcome, error) {
	order, err := s.repos.Order.GetByShipmentOrderID(ctx, shipmentOrderID)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); ok {
			s.logger.Info("Shipment webhook: no order for provider reference",
				zap.String("shipment_order_id", shipmentOrderID))
			return &WebhookOutcome{Ignored: true, Reason: "order not found"}, nil
		}
		return nil, err
	}

	if waybillID != "" {
		// First-writer-wins; a manually corrected tracking number survives
		// webhook redelivery.
		if _, err := s.repos.Order.SetTrackingNumberIfEmpty(ctx, order.ID, waybillID); err != nil {
			s.logger.Warn("Failed to store waybill", zap.Error(err), zap.String("order_id", order.ID.String()))
		}
	}

	target, known := courierStatusToOrderStatus(providerStatus)
	if !known {
		s.logger.Info("Ignoring unrecognized courier status",
			zap.String("order_id", order.ID.String()), zap.String("status", providerStatus))
		return &WebhookOutcome{OrderID: order.ID.String(), Ignored: true, Reason: "unrecognized status"}, nil
	}

	applied, err := s.repos.Order.UpdateStatusFrom(ctx, order.ID, domain.TransitionSourcesFor(target), target)
	if err != nil {
		return nil, err
	}

	// Timestamps follow the transition: an order the state machine refused
	// to move (already cancelled, already delivered) must not pick one up.
	if applied {
		now := time.Now()
		switch target {
		case domain.OrderStatusShipped:
			if _, err := s.repos.Order.MarkShippedIfUnset(ctx, order.ID, now); err != nil {
				return nil, err
			}
		case domain.OrderStatusDelivered:
			// A delivery can arrive without an intermediate shipped event
			if _, err := s.repos.Order.MarkShippedIfUnset(ctx, order.ID, now); err != nil {
				return nil, err
			}
			if _, err := s.repos.Order.MarkDeliveredIfUnset(ctx, order.ID, now); err != nil {
				return nil, err
			}
		}
	}

	if applied {
		s.recordEvent(ctx, order.ID, "shipment_status", map[string]interface{}{
			"provider_status": providerStatus,
			"to":              target,
		})
	}

	return &WebhookOutcome{OrderID: order.ID.String(), Applied: applied}, nil
}

func (s *shippingService) recordEvent(ctx context.Context, orderID uuid.UUID, eventType string, data map[string]interface{}) {
	event := &domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		EventData: data,
	}
	s.repos.OrderEvent.Create(ctx, event)
}

func localHistoryEntry(order *domain.Order) TrackingHistoryEntry {
	switch {
	case order.DeliveredAt != nil:
		return TrackingHistoryEntry{Status: "delivered", Note: "delivered by local courier", Time: order.DeliveredAt}
	case order.ShippedAt != nil:
		return TrackingHistoryEntry{Status: "out_for_delivery", Note: "out for local delivery", Time: order.ShippedAt}
	default:
		return TrackingHistoryEntry{Status: string(order.Status), Note: "preparing local delivery", Time: &order.UpdatedAt}
	}
}
