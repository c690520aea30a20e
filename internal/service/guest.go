package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/internal/repository"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

type guestService struct {
	repos    *repository.Repositories
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewGuestService creates a new guest order-tracking service
func NewGuestService(repos *repository.Repositories, tokenTTL time.Duration, logger *zap.Logger) *guestService {
	return &guestService{
		repos:    repos,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Verify checks that email and order id match an existing order and mints a
// time-boxed tracking token against it. The token is a narrow capability
// standing in for a session, since checkout is unauthenticated.
func (s *guestService) Verify(ctx context.Context, orderID uuid.UUID, email string) (token string, expiresAt time.Time, err error) {
	order, err := s.repos.Order.GetByIDAndEmail(ctx, orderID, email)
	if err != nil {
		return "", time.Time{}, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, err
	}
	token = hex.EncodeToString(raw)
	expiresAt = time.Now().Add(s.tokenTTL)

	if err := s.repos.Order.SetGuestTrackingToken(ctx, order.ID, token, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	s.logger.Info("Issued guest tracking token",
		zap.String("order_id", order.ID.String()),
		zap.Time("expires_at", expiresAt))
	return token, expiresAt, nil
}

// Authorize validates a presented tracking token against the order it was
// minted for. Absent, mismatched, or expired tokens are rejected.
func (s *guestService) Authorize(ctx context.Context, orderID uuid.UUID, token string) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if token == "" || order.GuestTrackingToken == nil || order.GuestTrackingExpires == nil {
		return nil, &errors.ErrUnauthorized{Message: "tracking token required"}
	}
	if !hmac.Equal([]byte(token), []byte(*order.GuestTrackingToken)) {
		return nil, &errors.ErrUnauthorized{Message: "invalid tracking token"}
	}
	if time.Now().After(*order.GuestTrackingExpires) {
		return nil, &errors.ErrUnauthorized{Message: "tracking token expired"}
	}

	return order, nil
}
