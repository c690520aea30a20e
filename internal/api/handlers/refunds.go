package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/internal/service"
)

// CreateRefundRequest represents the refund request payload
type CreateRefundRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Reason      string  `json:"reason" binding:"required"`
	ReasonNote  *string `json:"reason_note"`
	RequestedBy string  `json:"requested_by" binding:"required"`
}

// ReviewRefundRequest represents the refund review payload
type ReviewRefundRequest struct {
	Approve    bool    `json:"approve"`
	ReviewedBy string  `json:"reviewed_by" binding:"required"`
	Note       *string `json:"note"`
}

// RefundResponse represents a refund request in responses
type RefundResponse struct {
	ID              string              `json:"id"`
	OrderID         string              `json:"order_id"`
	Status          domain.RefundStatus `json:"status"`
	Amount          float64             `json:"amount"`
	Reason          domain.RefundReason `json:"reason"`
	ReasonNote      *string             `json:"reason_note,omitempty"`
	RequestedBy     string              `json:"requested_by"`
	ReviewedBy      *string             `json:"reviewed_by,omitempty"`
	AdminNotes      *string             `json:"admin_notes,omitempty"`
	GatewayRefundID *string             `json:"gateway_refund_id,omitempty"`
	RefundChannel   *string             `json:"refund_channel,omitempty"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
	CompletedAt     *string             `json:"completed_at,omitempty"`
}

func buildRefundResponse(refund *domain.RefundRequest) RefundResponse {
	resp := RefundResponse{
		ID:              refund.ID.String(),
		OrderID:         refund.OrderID.String(),
		Status:          refund.Status,
		Amount:          refund.Amount,
		Reason:          refund.Reason,
		ReasonNote:      refund.ReasonNote,
		RequestedBy:     refund.RequestedBy,
		ReviewedBy:      refund.ReviewedBy,
		AdminNotes:      refund.AdminNotes,
		GatewayRefundID: refund.GatewayRefundID,
		RefundChannel:   refund.RefundChannel,
		CreatedAt:       refund.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       refund.UpdatedAt.Format(time.RFC3339),
	}
	if refund.CompletedAt != nil {
		s := refund.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// HandleCreateRefund handles POST /v1/admin/orders/:id/refunds
func HandleCreateRefund(repos *repository.Repositories, payments service.PaymentGateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		var req CreateRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		refundSvc := service.NewRefundService(repos, payments, logger)
		refund, err := refundSvc.CreateRequest(c.Request.Context(), orderID, req.RequestedBy, domain.RefundReason(req.Reason), req.ReasonNote, req.Amount)
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, buildRefundResponse(refund))
	}
}

// HandleReviewRefund handles POST /v1/admin/refunds/:id/review
func HandleReviewRefund(repos *repository.Repositories, payments service.PaymentGateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		refundID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refund id"})
			return
		}

		var req ReviewRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}

		refundSvc := service.NewRefundService(repos, payments, logger)
		refund, err := refundSvc.Review(c.Request.Context(), refundID, req.Approve, req.ReviewedBy, req.Note)
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, buildRefundResponse(refund))
	}
}

// HandleProcessRefund handles POST /v1/admin/refunds/:id/process
func HandleProcessRefund(repos *repository.Repositories, payments service.PaymentGateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		refundID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refund id"})
			return
		}

		refundSvc := service.NewRefundService(repos, payments, logger)
		refund, err := refundSvc.Process(c.Request.Context(), refundID)
		if err != nil {
			respondServiceError(c, logger, err)
			return
		}

		c.JSON(http.StatusAccepted, buildRefundResponse(refund))
	}
}

// HandleListRefunds handles GET /v1/admin/refunds
func HandleListRefunds(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := parsePagination(c)

		statusParam := c.Query("status")
		if statusParam == "" {
			statusParam = string(domain.RefundStatusPending)
		}
		status := domain.RefundStatus(statusParam)

		refunds, err := repos.RefundRequest.ListByStatus(c.Request.Context(), status, limit, offset)
		if err != nil {
			logger.Error("Failed to list refund requests", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		responses := make([]RefundResponse, 0, len(refunds))
		for _, refund := range refunds {
			responses = append(responses, buildRefundResponse(refund))
		}
		c.JSON(http.StatusOK, gin.H{"refunds": responses, "limit": limit, "offset": offset})
	}
}

// HandleListOrderRefunds handles GET /v1/admin/orders/:id/refunds
func HandleListOrderRefunds(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		refunds, err := repos.RefundRequest.ListByOrderID(c.Request.Context(), orderID)
		if err != nil {
			logger.Error("Failed to list order refunds", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		responses := make([]RefundResponse, 0, len(refunds))
		for _, refund := range refunds {
			responses = append(responses, buildRefundResponse(refund))
		}
		c.JSON(http.StatusOK, gin.H{"refunds": responses})
	}
}
