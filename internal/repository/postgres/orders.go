package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/domain"
	"github.com/haidar038/kagounga-sub001/pkg/errors"
)

const orderColumns = `id, status, total_amount, shipping_cost,
		customer_name, customer_email, customer_phone, shipping_address, courier,
		is_local_delivery, payment_invoice_id, payment_invoice_url, payment_reference_id,
		shipment_order_id, tracking_number, guest_tracking_token, guest_tracking_expires,
		created_at, updated_at, shipped_at, delivered_at`

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, status, total_amount, shipping_cost,
			customer_name, customer_email, customer_phone, shipping_address, courier,
			is_local_delivery, payment_invoice_id, payment_invoice_url, payment_reference_id,
			shipment_order_id, tracking_number, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	var courierJSON []byte
	if order.Courier != nil {
		courierJSON, err = json.Marshal(order.Courier)
		if err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.TotalAmount,
		order.ShippingCost,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		addressJSON,
		courierJSON,
		order.IsLocalDelivery,
		order.PaymentInvoiceID,
		order.PaymentInvoiceURL,
		order.PaymentReferenceID,
		order.ShipmentOrderID,
		order.TrackingNumber,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND lower(customer_email) = lower($2)`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, email))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID and email", zap.Error(err))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByShipmentOrderID(ctx context.Context, shipmentOrderID string) (*domain.Order, error) {
	if shipmentOrderID == "" {
		return nil, &errors.ErrNotFound{Resource: "order", ID: "shipment_order_id empty"}
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE shipment_order_id = $1 LIMIT 1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, shipmentOrderID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: shipmentOrderID}
	}
	if err != nil {
		r.logger.Error("Failed to get order by shipment order ID", zap.Error(err), zap.String("shipment_order_id", shipmentOrderID))
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders by status", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectOrders(rows)
}

// UpdateStatusFrom performs a compare-and-set on the status column. The WHERE
// clause pins the current status, so concurrent webhook deliveries can never
// force an invalid transition; the caller inspects the applied result.
func (r *orderRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status IN (`
	args := []interface{}{id, to, time.Now()}
	for i, s := range from {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, s)
	}
	query += ")"

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err), zap.String("order_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) SetPaymentInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceURL string) error {
	query := `
		UPDATE orders
		SET payment_invoice_id = $2, payment_invoice_url = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, invoiceID, invoiceURL, time.Now())
	if err != nil {
		r.logger.Error("Failed to set payment invoice", zap.Error(err), zap.String("order_id", id.String()))
		return err
	}
	return nil
}

func (r *orderRepository) SetPaymentReference(ctx context.Context, id uuid.UUID, referenceID string) error {
	query := `
		UPDATE orders
		SET payment_reference_id = $2, updated_at = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, referenceID, time.Now())
	if err != nil {
		r.logger.Error("Failed to set payment reference", zap.Error(err), zap.String("order_id", id.String()))
		return err
	}
	return nil
}

func (r *orderRepository) SetShipmentOrderID(ctx context.Context, id uuid.UUID, shipmentOrderID string) error {
	query := `
		UPDATE orders
		SET shipment_order_id = $2, updated_at = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, shipmentOrderID, time.Now())
	if err != nil {
		r.logger.Error("Failed to set shipment order ID", zap.Error(err), zap.String("order_id", id.String()))
		return err
	}
	return nil
}

// SetTrackingNumberIfEmpty is first-writer-wins: a manually corrected value is
// never clobbered by a later webhook re-delivery.
func (r *orderRepository) SetTrackingNumberIfEmpty(ctx context.Context, id uuid.UUID, trackingNumber string) (bool, error) {
	query := `
		UPDATE orders
		SET tracking_number = $2, updated_at = $3
		WHERE id = $1 AND tracking_number IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, trackingNumber, time.Now())
	if err != nil {
		r.logger.Error("Failed to set tracking number", zap.Error(err), zap.String("order_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) MarkShippedIfUnset(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET shipped_at = $2, updated_at = $3
		WHERE id = $1 AND shipped_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at, time.Now())
	if err != nil {
		r.logger.Error("Failed to mark order shipped", zap.Error(err), zap.String("order_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) MarkDeliveredIfUnset(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET delivered_at = $2, updated_at = $3
		WHERE id = $1 AND delivered_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at, time.Now())
	if err != nil {
		r.logger.Error("Failed to mark order delivered", zap.Error(err), zap.String("order_id", id.String()))
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *orderRepository) SetGuestTrackingToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		UPDATE orders
		SET guest_tracking_token = $2, guest_tracking_expires = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, token, expiresAt, time.Now())
	if err != nil {
		r.logger.Error("Failed to set guest tracking token", zap.Error(err), zap.String("order_id", id.String()))
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var addressJSON []byte
	var courierJSON []byte
	var customerPhone sql.NullString
	var paymentInvoiceID sql.NullString
	var paymentInvoiceURL sql.NullString
	var paymentReferenceID sql.NullString
	var shipmentOrderID sql.NullString
	var trackingNumber sql.NullString
	var guestToken sql.NullString
	var guestExpires sql.NullTime
	var shippedAt sql.NullTime
	var deliveredAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.Status,
		&order.TotalAmount,
		&order.ShippingCost,
		&order.CustomerName,
		&order.CustomerEmail,
		&customerPhone,
		&addressJSON,
		&courierJSON,
		&order.IsLocalDelivery,
		&paymentInvoiceID,
		&paymentInvoiceURL,
		&paymentReferenceID,
		&shipmentOrderID,
		&trackingNumber,
		&guestToken,
		&guestExpires,
		&order.CreatedAt,
		&order.UpdatedAt,
		&shippedAt,
		&deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if customerPhone.Valid {
		order.CustomerPhone = customerPhone.String
	}
	if paymentInvoiceID.Valid {
		order.PaymentInvoiceID = &paymentInvoiceID.String
	}
	if paymentInvoiceURL.Valid {
		order.PaymentInvoiceURL = &paymentInvoiceURL.String
	}
	if paymentReferenceID.Valid {
		order.PaymentReferenceID = &paymentReferenceID.String
	}
	if shipmentOrderID.Valid {
		order.ShipmentOrderID = &shipmentOrderID.String
	}
	if trackingNumber.Valid {
		order.TrackingNumber = &trackingNumber.String
	}
	if guestToken.Valid {
		order.GuestTrackingToken = &guestToken.String
	}
	if guestExpires.Valid {
		order.GuestTrackingExpires = &guestExpires.Time
	}
	if shippedAt.Valid {
		order.ShippedAt = &shippedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, err
	}
	if len(courierJSON) > 0 {
		var courier domain.CourierSelection
		if err := json.Unmarshal(courierJSON, &courier); err != nil {
			return nil, err
		}
		order.Courier = &courier
	}

	return &order, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
