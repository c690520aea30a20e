package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

// OrderResponse represents the order response
type OrderResponse struct {
	ID              string                   `json:"id"`
	Status          domain.OrderStatus       `json:"status"`
	TotalAmount     float64                  `json:"total_amount"`
	ShippingCost    float64                  `json:"shipping_cost"`
	CustomerName    string                   `json:"customer_name"`
	CustomerEmail   string                   `json:"customer_email"`
	CustomerPhone   string                   `json:"customer_phone,omitempty"`
	ShippingAddress domain.ShippingAddress   `json:"shipping_address"`
	Courier         *domain.CourierSelection `json:"courier,omitempty"`
	IsLocalDelivery bool                     `json:"is_local_delivery"`
	InvoiceURL      *string                  `json:"invoice_url,omitempty"`
	TrackingNumber  *string                  `json:"tracking_number,omitempty"`
	Items           []OrderItemResponse      `json:"items,omitempty"`
	CreatedAt       string                   `json:"created_at"`
	UpdatedAt       string                   `json:"updated_at"`
	ShippedAt       *string                  `json:"shipped_at,omitempty"`
	DeliveredAt     *string                  `json:"delivered_at,omitempty"`
}

type OrderItemResponse struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	WeightGrams int     `json:"weight_grams,omitempty"`
}

func buildOrderResponse(order *domain.Order, items []*domain.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		ShippingCost:    order.ShippingCost,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		ShippingAddress: order.ShippingAddress,
		Courier:         order.Courier,
		IsLocalDelivery: order.IsLocalDelivery,
		InvoiceURL:      order.PaymentInvoiceURL,
		TrackingNumber:  order.TrackingNumber,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339),
	}
	if order.ShippedAt != nil {
		s := order.ShippedAt.Format(time.RFC3339)
		resp.ShippedAt = &s
	}
	if order.DeliveredAt != nil {
		s := order.DeliveredAt.Format(time.RFC3339)
		resp.DeliveredAt = &s
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Price:       item.Price,
			Quantity:    item.Quantity,
			WeightGrams: item.WeightGrams,
		})
	}
	return resp
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// HandleListOrders handles GET /v1/admin/orders
func HandleListOrders(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := parsePagination(c)

		var (
			orders []*domain.Order
			err    error
		)
		if statusParam := c.Query("status"); statusParam != "" {
			status := domain.OrderStatus(statusParam)
			if !status.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + statusParam})
				return
			}
			orders, err = repos.Order.ListByStatus(c.Request.Context(), status, limit, offset)
		} else {
			orders, err = repos.Order.List(c.Request.Context(), limit, offset)
		}
		if err != nil {
			logger.Error("Failed to list orders", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		responses := make([]OrderResponse, 0, len(orders))
		for _, order := range orders {
			responses = append(responses, buildOrderResponse(order, nil))
		}
		c.JSON(http.StatusOK, gin.H{"orders": responses, "limit": limit, "offset": offset})
	}
}

// HandleGetOrder handles GET /v1/admin/orders/:id with items and audit events
func HandleGetOrder(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		order, err := repos.Order.GetByID(c.Request.Context(), orderID)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			logger.Error("Failed to get order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		items, err := repos.OrderItem.GetByOrderID(c.Request.Context(), order.ID)
		if err != nil {
			logger.Error("Failed to get order items", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		events, err := repos.OrderEvent.GetByOrderID(c.Request.Context(), order.ID)
		if err != nil {
			logger.Error("Failed to get order events", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		eventPayloads := make([]gin.H, 0, len(events))
		for _, event := range events {
			eventPayloads = append(eventPayloads, gin.H{
				"type":       event.EventType,
				"data":       event.EventData,
				"created_at": event.CreatedAt.Format(time.RFC3339),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"order":  buildOrderResponse(order, items),
			"events": eventPayloads,
		})
	}
}

// HandleCreateShipment handles POST /v1/admin/orders/:id/shipment
func HandleCreateShipment(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		order, err := shippingSvc.CreateShipment(c.Request.Context(), orderID)
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, buildOrderResponse(order, nil))
	}
}

// HandleCancelOrder handles POST /v1/admin/orders/:id/cancel
func HandleCancelOrder(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		var body struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&body)
		if body.Reason == "" {
			body.Reason = "cancelled by admin"
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		if err := shippingSvc.CancelOrder(c.Request.Context(), orderID, body.Reason); err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "status": domain.OrderStatusCancelled})
	}
}

// respondServiceError maps typed service errors to HTTP codes
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
	case *errors.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Message, "fields": e.Fields})
	case *errors.ErrPreconditionFailed:
		c.JSON(http.StatusConflict, gin.H{"error": e.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": e.Error()})
	case *errors.ErrExternalProvider:
		c.JSON(http.StatusBadGateway, gin.H{"error": e.Error()})
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
