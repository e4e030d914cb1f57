package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping_address, currency, subtotal, discount,
		points_discount, shipping, tax, total, COALESCE(coupon_code, ''), payment_status, status,
		points_redeemed, points_earned, charge_id, payment_id, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, shipping_address, currency, subtotal,
		discount, points_discount, shipping, tax, total, coupon_code, payment_status, status,
		points_redeemed, points_earned, charge_id, payment_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14,
		$15, $16, $17, $18, $19, $20)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`

	markOrderPaidSQL = `UPDATE orders SET payment_status = 'paid',
		payment_id = COALESCE(NULLIF($2, ''), payment_id), points_earned = $3, updated_at = $4
		WHERE id = $1 AND payment_status = 'pending'`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
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

// Create persists a new order. Items and the shipping address are stored
// as JSONB snapshots.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, addressJSON, o.Currency, o.Subtotal,
		o.Discount, o.PointsDiscount, o.Shipping, o.Tax, o.Total, o.CouponCode,
		string(o.PaymentStatus), string(o.Status), o.PointsRedeemed, o.PointsEarned,
		o.ChargeID, o.PaymentID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus changes the status only if it still equals from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missOr(ctx, id, order.ErrStatusConflict)
}

// MarkPaid flips a pending order to paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, paymentID string, pointsEarned int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, id, paymentID, pointsEarned, at)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missOr(ctx, id, order.ErrAlreadyPaid)
}

// missOr returns order.ErrNotFound if the order does not exist, otherwise
// the given guard error.
func (r *OrderRepository) missOr(ctx context.Context, id string, guardErr error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return guardErr
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                      order.Order
		itemsJSON, addressJSON []byte
		paymentStatus, status  string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &addressJSON, &o.Currency, &o.Subtotal, &o.Discount,
		&o.PointsDiscount, &o.Shipping, &o.Tax, &o.Total, &o.CouponCode, &paymentStatus, &status,
		&o.PointsRedeemed, &o.PointsEarned, &o.ChargeID, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling address of order %q: %w", o.ID, err)
	}
	return o, nil
}
