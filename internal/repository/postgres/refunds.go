package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

const refundColumns = `id, order_id, requested_by, reason, reason_note, amount, status,
		reviewed_by, reviewed_at, admin_notes, gateway_refund_id, payment_reference_id,
		refund_channel, completed_at, created_at, updated_at`

type refundRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRefundRequestRepository creates a new refund request repository
func NewRefundRequestRepository(db *sql.DB, logger *zap.Logger) *refundRequestRepository {
	return &refundRequestRepository{
		db:     db,
		logger: logger,
	}
}

func (r *refundRequestRepository) Create(ctx context.Context, refund *domain.RefundRequest) error {
	query := `
		INSERT INTO refund_requests (
			id, order_id, requested_by, reason, reason_note, amount, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = now
	}
	if refund.UpdatedAt.IsZero() {
		refund.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		refund.ID,
		refund.OrderID,
		refund.RequestedBy,
		refund.Reason,
		refund.ReasonNote,
		refund.Amount,
		refund.Status,
		refund.CreatedAt,
		refund.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create refund request", zap.Error(err))
		return err
	}

	return nil
}

func (r *refundRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE id = $1`

	refund, err := scanRefund(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "refund_request", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get refund request by ID", zap.Error(err))
		return nil, err
	}
	return refund, nil
}

func (r *refundRequestRepository) GetByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*domain.RefundRequest, error) {
	if gatewayRefundID == "" {
		return nil, &errors.ErrNotFound{Resource: "refund_request", ID: "gateway_refund_id empty"}
	}
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE gateway_refund_id = $1 LIMIT 1`

	refund, err := scanRefund(r.db.QueryRowContext(ctx, query, gatewayRefundID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "refund_request", ID: gatewayRefundID}
	}
	if err != nil {
		r.logger.Error("Failed to get refund request by gateway refund ID", zap.Error(err))
		return nil, err
	}
	return refund, nil
}

func (r *refundRequestRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to list refund requests by order ID", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectRefunds(rows)
}

func (r *refundRequestRepository) ListByStatus(ctx context.Context, status domain.RefundStatus, limit, offset int) ([]*domain.RefundRequest, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list refund requests by status", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectRefunds(rows)
}

func (r *refundRequestRepository) Review(ctx context.Context, id uuid.UUID, to domain.RefundStatus, reviewedBy string, note *string) (bool, error) {
	query := `
		UPDATE refund_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, admin_notes = COALESCE($5, admin_notes), updated_at = $4
		WHERE id = $1 AND status = $6
	`
	res, err := r.db.ExecContext(ctx, query, id, to, reviewedBy, time.Now(), note, domain.RefundStatusPending)
	if err != nil {
		r.logger.Error("Failed to review refund request", zap.Error(err), zap.String("refund_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StartProcessing claims an approved request. Zero rows affected means another
// actor moved the request first; the caller reports PreconditionFailed.
func (r *refundRequestRepository) StartProcessing(ctx context.Context, id uuid.UUID, paymentReferenceID string) (bool, error) {
	query := `
		UPDATE refund_requests
		SET status = $2, payment_reference_id = NULLIF($3, ''), updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, domain.RefundStatusProcessing, paymentReferenceID, time.Now(), domain.RefundStatusApproved)
	if err != nil {
		r.logger.Error("Failed to start refund processing", zap.Error(err), zap.String("refund_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *refundRequestRepository) SetGatewayRefund(ctx context.Context, id uuid.UUID, gatewayRefundID string, channel *string) error {
	query := `
		UPDATE refund_requests
		SET gateway_refund_id = $2, refund_channel = COALESCE($3, refund_channel), updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, gatewayRefundID, channel, time.Now())
	if err != nil {
		r.logger.Error("Failed to set gateway refund", zap.Error(err), zap.String("refund_id", id.String()))
		return err
	}
	return nil
}

func (r *refundRequestRepository) MarkCompletedIfProcessing(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	query := `
		UPDATE refund_requests
		SET status = $2, completed_at = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, domain.RefundStatusCompleted, completedAt, time.Now(), domain.RefundStatusProcessing)
	if err != nil {
		r.logger.Error("Failed to mark refund completed", zap.Error(err), zap.String("refund_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *refundRequestRepository) MarkFailedIfProcessing(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	query := `
		UPDATE refund_requests
		SET status = $2, admin_notes = CASE WHEN admin_notes IS NULL THEN $3 ELSE admin_notes || E'\n' || $3 END, updated_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, query, id, domain.RefundStatusFailed, note, time.Now(), domain.RefundStatusProcessing)
	if err != nil {
		r.logger.Error("Failed to mark refund failed", zap.Error(err), zap.String("refund_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanRefund(row rowScanner) (*domain.RefundRequest, error) {
	var refund domain.RefundRequest
	var reasonNote sql.NullString
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	var adminNotes sql.NullString
	var gatewayRefundID sql.NullString
	var paymentReferenceID sql.NullString
	var refundChannel sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.RequestedBy,
		&refund.Reason,
		&reasonNote,
		&refund.Amount,
		&refund.Status,
		&reviewedBy,
		&reviewedAt,
		&adminNotes,
		&gatewayRefundID,
		&paymentReferenceID,
		&refundChannel,
		&completedAt,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reasonNote.Valid {
		refund.ReasonNote = &reasonNote.String
	}
	if reviewedBy.Valid {
		refund.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		refund.ReviewedAt = &reviewedAt.Time
	}
	if adminNotes.Valid {
		refund.AdminNotes = &adminNotes.String
	}
	if gatewayRefundID.Valid {
		refund.GatewayRefundID = &gatewayRefundID.String
	}
	if paymentReferenceID.Valid {
		refund.PaymentReferenceID = &paymentReferenceID.String
	}
	if refundChannel.Valid {
		refund.RefundChannel = &refundChannel.String
	}
	if completedAt.Valid {
		refund.CompletedAt = &completedAt.Time
	}

	return &refund, nil
}

func collectRefunds(rows *sql.Rows) ([]*domain.RefundRequest, error) {
	var refunds []*domain.RefundRequest
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, rows.Err()
}
