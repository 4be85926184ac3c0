package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

const (
	orderColumns = `id, order_number, account_id, customer_id, restaurant_id, delivery_address_id,
		status, cancelled_from, subtotal, tax_amount, delivery_fee, discount_amount, total_amount,
		payment_method_code, payment_status, payment_reference, special_instructions, created_at`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	// The update only applies while the order is still in the expected
	// status; cancelled orders remember where they stopped.
	updateOrderStatusSQL = `UPDATE orders
		SET status = $3::text,
			cancelled_from = CASE WHEN $3::text = 'cancelled' THEN $2::text ELSE cancelled_from END
		WHERE order_number = $1 AND status = $2::text
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByNumber returns the order with the given number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	return &o, nil
}

// UpdateStatus moves the order from one status to another.
func (r *OrderRepository) UpdateStatus(ctx context.Context, number string, from, to order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, number, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", number, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("updating order %q: %w", number, err)
		}
		if _, getErr := r.GetByNumber(ctx, number); getErr != nil {
			return nil, getErr
		}
		return nil, order.ErrInvalidTransition
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		cancelledFrom string
		paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.AccountID, &o.CustomerID, &o.RestaurantID, &o.DeliveryAddressID,
		&status, &cancelledFrom, &o.Subtotal, &o.TaxAmount, &o.DeliveryFee, &o.DiscountAmount, &o.TotalAmount,
		&o.PaymentMethodCode, &paymentStatus, &o.PaymentReference, &o.SpecialInstructions, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	o.CancelledFrom = order.Status(cancelledFrom)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}
