package postgres

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
)

type checkoutKeyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCheckoutKeyRepository creates a new checkout idempotency key repository
func NewCheckoutKeyRepository(db *sql.DB, logger *zap.Logger) *checkoutKeyRepository {
	return &checkoutKeyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *checkoutKeyRepository) GetByKey(ctx context.Context, key string) (*domain.CheckoutKey, error) {
	query := `
		SELECT key, order_id, request_hash, created_at
		FROM checkout_keys
		WHERE key = $1
	`

	var checkoutKey domain.CheckoutKey

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&checkoutKey.Key,
		&checkoutKey.OrderID,
		&checkoutKey.RequestHash,
		&checkoutKey.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get checkout key", zap.Error(err))
		return nil, err
	}

	return &checkoutKey, nil
}

func (r *checkoutKeyRepository) Create(ctx context.Context, key *domain.CheckoutKey) error {
	query := `
		INSERT INTO checkout_keys (key, order_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	now := time.Now()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		key.Key,
		key.OrderID,
		key.RequestHash,
		key.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create checkout key", zap.Error(err))
		return err
	}

	return nil
}
