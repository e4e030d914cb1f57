package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator validates coupon codes against a subtotal and records usage
// once an order has been placed.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Validate looks up the coupon by its normalized code and checks that it
// is active, unexpired, not exhausted and that subtotal meets the minimum
// purchase. It never mutates the coupon.
func (e *Evaluator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	c, err := e.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	if err := check(c, subtotal, e.now); err != nil {
		return nil, err
	}
	return c, nil
}

// Preview validates the code and computes the discount it would grant on
// subtotal, clamped to subtotal. Usage is not recorded.
func (e *Evaluator) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Quote, error) {
	c, err := e.Validate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Coupon: c,
		Amount: decimal.Min(ComputeDiscount(c, subtotal), subtotal),
	}, nil
}

// RecordUsage increments the used count of the coupon. Call it only after
// the order that applied the coupon has been stored.
func (e *Evaluator) RecordUsage(ctx context.Context, code string) error {
	if err := e.repo.IncrementUses(ctx, NormalizeCode(code)); err != nil {
		return errors.Wrap(err, "increment coupon uses")
	}
	return nil
}

// Save validates and stores a coupon definition from the back office.
func (e *Evaluator) Save(ctx context.Context, c *Coupon) error {
	c.Code = NormalizeCode(c.Code)
	switch {
	case c.Code == "":
		return &DefinitionError{Reason: "coupon code is required"}
	case !c.DiscountType.Valid():
		return &DefinitionError{Reason: fmt.Sprintf("unsupported discount type: %q", c.DiscountType)}
	case !c.Value.IsPositive():
		return &DefinitionError{Reason: "discount value must be positive"}
	case c.DiscountType == DiscountPercentage && c.Value.GreaterThan(hundred):
		return &DefinitionError{Reason: "percentage discount cannot exceed 100"}
	case c.UsageLimit != nil && *c.UsageLimit < 0:
		return &DefinitionError{Reason: "usage limit cannot be negative"}
	}
	if c.DiscountType == DiscountFixed {
		c.MaxDiscount = decimal.NullDecimal{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = e.now()
	}
	if err := e.repo.Upsert(ctx, c); err != nil {
		return errors.Wrap(err, "save coupon")
	}
	return nil
}

// List returns every coupon for the back office.
func (e *Evaluator) List(ctx context.Context) ([]Coupon, error) {
	return e.repo.List(ctx)
}
