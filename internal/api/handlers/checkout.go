package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/api/middleware"
	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

// HandleCheckout handles POST /v1/checkout.
// Creates a PENDING order with item snapshots and a payment invoice. Supports
// the Idempotency-Key header: a replayed submission returns the original
// order.
func HandleCheckout(cfg *config.Config, repos *repository.Repositories, payments service.PaymentGateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Replayed idempotency key: return the order created the first time
		if _, _, existingOrderID, isExisting := middleware.GetIdempotencyInfo(c); isExisting {
			orderID, err := uuid.Parse(existingOrderID)
			if err == nil {
				if order, err := repos.Order.GetByID(c.Request.Context(), orderID); err == nil {
					items, _ := repos.OrderItem.GetByOrderID(c.Request.Context(), order.ID)
					c.JSON(http.StatusOK, buildOrderResponse(order, items))
					return
				}
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve idempotent order"})
			return
		}

		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		checkoutSvc := service.NewCheckoutService(repos, payments, cfg, logger)
		order, err := checkoutSvc.Checkout(c.Request.Context(), req)
		if err != nil {
			switch e := err.(type) {
			case *errors.ErrValidation:
				c.JSON(http.StatusBadRequest, gin.H{"error": e.Message, "fields": e.Fields})
			case *errors.ErrExternalProvider:
				c.JSON(http.StatusBadGateway, gin.H{"error": e.Error()})
			default:
				logger.Error("Checkout failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		// Store the idempotency key so a replay resolves to this order
		if key, requestHash, _, _ := middleware.GetIdempotencyInfo(c); key != "" {
			checkoutKey := &domain.CheckoutKey{
				Key:         key,
				OrderID:     order.ID,
				RequestHash: requestHash,
			}
			if err := repos.CheckoutKey.Create(c.Request.Context(), checkoutKey); err != nil {
				logger.Warn("Failed to store checkout key", zap.Error(err))
			}
		}

		items, _ := repos.OrderItem.GetByOrderID(c.Request.Context(), order.ID)
		c.JSON(http.StatusCreated, buildOrderResponse(order, items))
	}
}
