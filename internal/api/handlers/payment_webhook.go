package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
)

// InvoiceCallbackPayload represents the Xendit invoice callback body
type InvoiceCallbackPayload struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	PaymentID  string `json:"payment_id"`
}

// HandleInvoiceWebhook handles POST /webhooks/xendit/invoice
//
// The gateway retries on non-2xx, so processing problems that cannot be
// fixed by redelivery (unknown order, stale status) are acknowledged
// with 200 and logged.
func HandleInvoiceWebhook(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Xendit.CallbackToken != "" {
			token := c.GetHeader("x-callback-token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Xendit.CallbackToken)) != 1 {
				logger.Warn("Invoice callback token mismatch")
				c.JSON(http.StatusForbidden, gin.H{"error": "invalid callback token"})
				return
			}
		}

		var payload InvoiceCallbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			// A malformed body will never become valid on redelivery
			logger.Warn("Invoice callback with unreadable payload", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}

		paymentSvc := service.NewPaymentService(repos, logger)
		outcome, err := paymentSvc.ApplyInvoiceCallback(c.Request.Context(), payload.ExternalID, payload.Status, payload.PaymentID)
		if err != nil {
			// Transient failure: let the gateway redeliver
			logger.Error("Failed to apply invoice callback", zap.Error(err), zap.String("external_id", payload.ExternalID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if outcome.Ignored {
			logger.Info("Invoice callback acknowledged without effect",
				zap.String("external_id", payload.ExternalID),
				zap.String("status", payload.Status),
				zap.String("reason", outcome.Reason))
		}
		c.JSON(http.StatusOK, gin.H{"success": outcome.Applied})
	}
}
