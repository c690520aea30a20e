package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Order:         NewOrderRepository(db, logger),
		OrderItem:     NewOrderItemRepository(db, logger),
		RefundRequest: NewRefundRequestRepository(db, logger),
		OrderEvent:    NewOrderEventRepository(db, logger),
		CheckoutKey:   NewCheckoutKeyRepository(db, logger),
	}
}
