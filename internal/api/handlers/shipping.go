package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
)

// RatesRequest represents the shipping rate lookup payload
type RatesRequest struct {
	Destination struct {
		City       string `json:"city" binding:"required"`
		PostalCode string `json:"postal_code" binding:"required"`
		AreaID     string `json:"area_id"`
	} `json:"destination" binding:"required"`
	Items []service.CheckoutItem `json:"items" binding:"required,min=1"`
}

// HandleCalculateRates handles POST /v1/shipping/rates
func HandleCalculateRates(cfg *config.Config, repos *repository.Repositories, provider service.ShippingProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		shippingSvc := service.NewShippingService(repos, provider, cfg.Shipping, logger)
		rates, err := shippingSvc.CalculateRates(c.Request.Context(), req.Destination.City, req.Destination.PostalCode, req.Destination.AreaID, req.Items)
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"rates": rates})
	}
}
