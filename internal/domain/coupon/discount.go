package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the discount the coupon grants on subtotal.
// Percentage discounts are capped by MaxDiscount when set. The result is
// rounded to cents and never negative; it may exceed subtotal for fixed
// coupons, so callers clamp it against the amount being discounted.
func ComputeDiscount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.Valid && amount.GreaterThan(c.MaxDiscount.Decimal) {
			amount = c.MaxDiscount.Decimal
		}
	case DiscountFixed:
		amount = c.Value
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

// check applies the eligibility rules in order and returns the first
// violation.
func check(c *Coupon, subtotal decimal.Decimal, now func() time.Time) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now()) {
		return ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrCouponExhausted
	}
	if c.MinPurchase.Valid && subtotal.LessThan(c.MinPurchase.Decimal) {
		return ErrCouponMinimumNotMet
	}
	return nil
}
