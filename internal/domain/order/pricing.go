package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

// ErrEmptyItems is returned when an order has no lines.
var ErrEmptyItems = errors.New("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// CartLine is a line as submitted by the client. There is deliberately no
// price field.
type CartLine struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Pricing holds the store-wide shipping and tax rules.
type Pricing struct {
	// Currency of catalog prices and orders.
	Currency string
	// ShippingFee is charged unless the subtotal exceeds FreeShippingThreshold.
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	// TaxRate is a fraction, e.g. 0.08 for 8%.
	TaxRate decimal.Decimal
	// LoyaltyCurrency values points and measures earning.
	LoyaltyCurrency string
}

// ShippingFor returns the shipping charge for a subtotal.
func (p Pricing) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee.Round(2)
}

// TaxFor returns the tax charged on the discounted amount.
func (p Pricing) TaxFor(taxable decimal.Decimal) decimal.Decimal {
	if !taxable.IsPositive() {
		return decimal.Zero
	}
	return taxable.Mul(p.TaxRate).Round(2)
}

// ComputeSubtotal resolves every line against the catalog in one batch and
// returns Σ unitPrice × quantity with per-line snapshots.
func ComputeSubtotal(ctx context.Context, lines []CartLine, catalog product.Repository) (decimal.Decimal, []Item, error) {
	if len(lines) == 0 {
		return decimal.Zero, nil, ErrEmptyItems
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return decimal.Zero, nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	fetched, err := catalog.GetByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	subtotal := decimal.Zero
	items := make([]Item, len(lines))
	for i, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return decimal.Zero, nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		items[i] = Item{
			ProductID: p.ID,
			Title:     p.Title,
			ImageURL:  p.ImageURL,
			Quantity:  line.Quantity,
			Size:      line.Size,
			Color:     line.Color,
			UnitPrice: p.Price,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return subtotal.Round(2), items, nil
}
