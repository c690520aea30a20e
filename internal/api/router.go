package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/api/handlers"
	"github.com/haidar038/kagounga-sub001/internal/api/middleware"
	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, payments service.PaymentGateway, shipping service.ShippingProvider, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Kagounga Order API",
			"endpoints": []string{
				"GET /health",
				"POST /v1/checkout",
				"POST /v1/shipping/rates",
				"POST /v1/guest/orders/verify",
				"GET /v1/guest/orders/:id/tracking",
				"GET /v1/admin/orders",
				"GET /v1/admin/refunds",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway webhooks: payment and shipment providers call these back
	router.POST("/webhooks/xendit/invoice", handlers.HandleInvoiceWebhook(cfg, repos, logger))
	router.POST("/webhooks/xendit/refund", handlers.HandleRefundWebhook(cfg, repos, payments, logger))
	router.POST("/webhooks/biteship/status", handlers.HandleShipmentWebhook(cfg, repos, shipping, logger))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		// Storefront routes (public, no authentication)
		storefront := v1.Group("")
		storefront.Use(middleware.IdempotencyMiddleware(repos, logger))
		{
			storefront.POST("/checkout", handlers.HandleCheckout(cfg, repos, payments, logger))
			storefront.POST("/shipping/rates", handlers.HandleCalculateRates(cfg, repos, shipping, logger))
		}

		// Guest tracking (token issued by verify, presented on tracking)
		guest := v1.Group("/guest")
		{
			guest.POST("/orders/verify", handlers.HandleGuestVerify(cfg, repos, logger))
			guest.GET("/orders/:id/tracking", handlers.HandleGuestTracking(cfg, repos, shipping, logger))
		}

		// Admin routes (bearer key)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuthMiddleware(cfg.Admin, logger))
		{
			adminRoutes.GET("/orders", handlers.HandleListOrders(repos, logger))
			adminRoutes.GET("/orders/:id", handlers.HandleGetOrder(repos, logger))
			adminRoutes.GET("/orders/:id/tracking", handlers.HandleAdminTracking(cfg, repos, shipping, logger))
			adminRoutes.POST("/orders/:id/shipment", handlers.HandleCreateShipment(cfg, repos, shipping, logger))
			adminRoutes.POST("/orders/:id/cancel", handlers.HandleCancelOrder(cfg, repos, shipping, logger))
			adminRoutes.POST("/orders/:id/refunds", handlers.HandleCreateRefund(repos, payments, logger))
			adminRoutes.GET("/orders/:id/refunds", handlers.HandleListOrderRefunds(repos, logger))
			adminRoutes.GET("/refunds", handlers.HandleListRefunds(repos, logger))
			adminRoutes.POST("/refunds/:id/review", handlers.HandleReviewRefund(repos, payments, logger))
			adminRoutes.POST("/refunds/:id/process", handlers.HandleProcessRefund(repos, payments, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
