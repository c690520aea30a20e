package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

// GuestVerifyRequest represents the guest order verification payload
type GuestVerifyRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}

// HandleGuestVerify handles POST /v1/guest/orders/verify
func HandleGuestVerify(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GuestVerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			// Do not distinguish a malformed id from a missing order
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		guestSvc := service.NewGuestService(repos, cfg.GuestTokenTTL, logger)
		token, expiresAt, err := guestSvc.Verify(c.Request.Context(), orderID, req.Email)
		if err != nil {
			if _, ok := err.(*errors.ErrNotFound); ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			logger.Error("Failed to verify guest order", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"accessToken": token,
			"expiresAt":   expiresAt.Format(time.RFC3339),
		})
	}
}

// HandleGuestTracking handles GET /v1/guest/orders/:id/tracking
//
// The caller must present the token from a prior verify call in the
// X-Tracking-Token header.
func HandleGuestTracking(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}

		token := c.GetHeader("X-Tracking-Token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tracking token"})
			return
		}

		guestSvc := service.NewGuestService(repos, cfg.GuestTokenTTL, logger)
		order, err := guestSvc.Authorize(c.Request.Context(), orderID, token)
		if err != nil {
			switch err.(type) {
			case *errors.ErrNotFound:
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case *errors.ErrUnauthorized:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired tracking token"})
			default:
				logger.Error("Failed to authorize tracking token", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		info, err := shippingSvc.Track(c.Request.Context(), order.ID, "")
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, info)
	}
}

// HandleAdminTracking handles GET /v1/admin/orders/:id/tracking
//
// An optional tracking_number query parameter overrides the waybill stored
// on the order, for looking up a manually corrected number before it lands.
func HandleAdminTracking(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		info, err := shippingSvc.Track(c.Request.Context(), orderID, c.Query("tracking_number"))
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, info)
	}
}
