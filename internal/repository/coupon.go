package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
)

const (
	couponColumns = `code, discount_type, value, description, min_purchase, max_discount,
		usage_limit, used_count, expires_at, active, created_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = UPPER($1)`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, code`

	// The guard keeps used_count within usage_limit under concurrent orders.
	incrementCouponUsesSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, description, min_purchase,
		max_discount, usage_limit, expires_at, active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
		description = EXCLUDED.description, min_purchase = EXCLUDED.min_purchase,
		max_discount = EXCLUDED.max_discount, usage_limit = EXCLUDED.usage_limit,
		expires_at = EXCLUDED.expires_at, active = EXCLUDED.active
	RETURNING used_count`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, active or not.
// Returns coupon.ErrCouponNotFound when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUses bumps the usage counter unless the coupon is exhausted.
func (r *CouponRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("checking coupon %q: %w", code, err)
	}
	if !exists {
		return coupon.ErrCouponNotFound
	}
	return coupon.ErrCouponExhausted
}

// Upsert creates or updates a coupon definition. The used count is never
// overwritten.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, upsertCouponSQL,
		c.Code, string(c.DiscountType), c.Value, c.Description, c.MinPurchase,
		c.MaxDiscount, c.UsageLimit, c.ExpiresAt, c.Active, c.CreatedAt,
	).Scan(&c.UsedCount)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// List returns every coupon, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.Code, &discountType, &c.Value, &c.Description, &c.MinPurchase, &c.MaxDiscount,
		&c.UsageLimit, &c.UsedCount, &c.ExpiresAt, &c.Active, &c.CreatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
