package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal, optionally
	// capped by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	// ErrCouponNotFound is returned when no coupon matches the code.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponInactive is returned when the coupon has been switched off.
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponExpired is returned when the coupon expiry is in the past.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponExhausted is returned when the coupon has used up its usage limit.
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	// ErrCouponMinimumNotMet is returned when the subtotal is below the
	// coupon's minimum purchase.
	ErrCouponMinimumNotMet = errors.New("minimum purchase not met")
)

// DefinitionError rejects a coupon definition submitted by the back office.
type DefinitionError struct {
	Reason string
}

func (e *DefinitionError) Error() string { return e.Reason }

// Coupon is a discount code and its eligibility constraints.
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	Description  string
	MinPurchase  decimal.NullDecimal
	MaxDiscount  decimal.NullDecimal
	UsageLimit   *int
	UsedCount    int
	ExpiresAt    *time.Time
	Active       bool
	CreatedAt    time.Time
}

// Quote is the outcome of evaluating a coupon against a subtotal.
type Quote struct {
	Coupon *Coupon
	Amount decimal.Decimal
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	// FindByCode returns the coupon with the given normalized code,
	// including inactive ones. Returns ErrCouponNotFound when absent.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUses bumps the used count by one unless that would exceed
	// the usage limit, in which case it returns ErrCouponExhausted.
	IncrementUses(ctx context.Context, code string) error
	Upsert(ctx context.Context, c *Coupon) error
	List(ctx context.Context) ([]Coupon, error)
}

// NormalizeCode trims and uppercases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
