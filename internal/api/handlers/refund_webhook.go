package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

// RefundCallbackPayload represents the Xendit refund callback body
type RefundCallbackPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID          string  `json:"id"`
		ReferenceID string  `json:"reference_id"`
		Status      string  `json:"status"`
		Amount      float64 `json:"amount"`
		ChannelCode string  `json:"channel_code"`
		FailureCode string  `json:"failure_code"`
	} `json:"data"`
	Created string `json:"created"`
}

// checkRefundReplay validates the embedded creation timestamp against the
// replay tolerance. A missing or unparseable timestamp is rejected the same
// as a stale one, and drift is absolute so a forged future timestamp cannot
// slip past the window.
func checkRefundReplay(created string, tolerance time.Duration) *errors.ErrReplayRejected {
	if created == "" {
		return &errors.ErrReplayRejected{Message: "missing created timestamp"}
	}
	createdAt, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return &errors.ErrReplayRejected{Message: "invalid created timestamp"}
	}
	drift := time.Since(createdAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > tolerance {
		return &errors.ErrReplayRejected{Message: "created timestamp outside tolerance"}
	}
	return nil
}

// HandleRefundWebhook handles POST /webhooks/xendit/refund
//
// Unlike the invoice callback this endpoint is strict: a bad token is a
// 403 and a callback outside the replay tolerance is a 400, because a
// replayed refund notification moves money state.
func HandleRefundWebhook(cfg *config.Config, repos *repository.Repositories, payments service.PaymentGateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-callback-token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Xendit.CallbackToken)) != 1 {
			replayErr := &errors.ErrReplayRejected{Message: "invalid callback token"}
			logger.Warn("Refund callback token mismatch")
			c.JSON(http.StatusForbidden, gin.H{"error": replayErr.Error()})
			return
		}

		var payload RefundCallbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		if replayErr := checkRefundReplay(payload.Created, cfg.RefundReplayTolerance); replayErr != nil {
			logger.Warn("Rejected refund callback replay",
				zap.String("refund_id", payload.Data.ID),
				zap.String("created", payload.Created),
				zap.Error(replayErr))
			c.JSON(http.StatusBadRequest, gin.H{"error": replayErr.Error()})
			return
		}

		refundSvc := service.NewRefundService(repos, payments, logger)
		outcome, err := refundSvc.Resolve(c.Request.Context(), payload.Data.ReferenceID, payload.Data.ID, payload.Data.Status, payload.Data.FailureCode)
		if err != nil {
			logger.Error("Failed to resolve refund callback", zap.Error(err), zap.String("refund_id", payload.Data.ID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if outcome.Ignored {
			logger.Info("Refund callback acknowledged without effect",
				zap.String("refund_id", payload.Data.ID),
				zap.String("status", payload.Data.Status),
				zap.String("reason", outcome.Reason))
		}
		c.JSON(http.StatusOK, gin.H{"success": outcome.Applied})
	}
}
