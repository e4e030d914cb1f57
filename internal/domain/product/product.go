package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Price is the
// authoritative unit price in the store currency.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Subcategory string
	Sizes       []string
	Colors      []string
	Tags        []string
	ImageURL    string
	// ExternalID links the product to the commerce platform it was synced
	// from. Empty for products created in the back office.
	ExternalID string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// SyncRepository is implemented by stores that accept batch imports from
// the external catalog.
type SyncRepository interface {
	ListExternalIDs(ctx context.Context) ([]string, error)
	UpsertByExternalID(ctx context.Context, p Product) error
}
