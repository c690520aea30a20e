package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
)

// ShipmentCallbackPayload represents the Biteship status callback body
type ShipmentCallbackPayload struct {
	Event            string `json:"event"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	CourierWaybillID string `json:"courier_waybill_id"`
}

// HandleShipmentWebhook handles POST /webhooks/biteship/status
func HandleShipmentWebhook(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload ShipmentCallbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			// A malformed body will never become valid on redelivery
			logger.Warn("Shipment callback with unreadable payload", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}

		if payload.OrderID == "" {
			logger.Warn("Shipment callback missing order_id", zap.String("event", payload.Event))
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		outcome, err := shippingSvc.ApplyStatusWebhook(c.Request.Context(), payload.OrderID, payload.Status, payload.CourierWaybillID)
		if err != nil {
			logger.Error("Failed to apply shipment callback", zap.Error(err), zap.String("shipment_order_id", payload.OrderID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if outcome.Ignored {
			logger.Info("Shipment callback acknowledged without effect",
				zap.String("shipment_order_id", payload.OrderID),
				zap.String("status", payload.Status),
				zap.String("reason", outcome.Reason))
		}
		c.JSON(http.StatusOK, gin.H{"success": outcome.Applied})
	}
}
