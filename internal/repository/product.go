package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

const (
	productColumns = `id, title, description, price, stock, category, subcategory,
		sizes, colors, tags, image_url, COALESCE(external_id, '')`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY title, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	listExternalIDsSQL = `SELECT external_id FROM products WHERE external_id IS NOT NULL`

	upsertProductSQL = `INSERT INTO products (id, title, description, price, stock, category, subcategory,
		sizes, colors, tags, image_url, external_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title, description = EXCLUDED.description, price = EXCLUDED.price,
		stock = EXCLUDED.stock, category = EXCLUDED.category, subcategory = EXCLUDED.subcategory,
		sizes = EXCLUDED.sizes, colors = EXCLUDED.colors, tags = EXCLUDED.tags,
		image_url = EXCLUDED.image_url, external_id = EXCLUDED.external_id, updated_at = now()`

	upsertProductByExternalIDSQL = `INSERT INTO products (id, title, description, price, stock, category, subcategory,
		sizes, colors, tags, image_url, external_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (external_id) DO UPDATE SET
		title = EXCLUDED.title, description = EXCLUDED.description, price = EXCLUDED.price,
		stock = EXCLUDED.stock, category = EXCLUDED.category, subcategory = EXCLUDED.subcategory,
		sizes = EXCLUDED.sizes, colors = EXCLUDED.colors, tags = EXCLUDED.tags,
		image_url = EXCLUDED.image_url, updated_at = now()`
)

var (
	_ product.Repository     = (*ProductRepository)(nil)
	_ product.SyncRepository = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by title.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListExternalIDs returns the external catalog ids of synced products.
func (r *ProductRepository) ListExternalIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listExternalIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing external ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Upsert inserts or replaces a product keyed by its id.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, productArgs(p)...)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// UpsertByExternalID inserts a synced product or refreshes the existing row
// with the same external id. The row keeps its original id.
func (r *ProductRepository) UpsertByExternalID(ctx context.Context, p product.Product) error {
	if p.ExternalID == "" {
		return errors.New("external id is required")
	}
	_, err := r.pool.Exec(ctx, upsertProductByExternalIDSQL, productArgs(p)...)
	if err != nil {
		return fmt.Errorf("upserting product by external id %q: %w", p.ExternalID, err)
	}
	return nil
}

func productArgs(p product.Product) []any {
	return []any{
		p.ID, p.Title, p.Description, p.Price, p.Stock, p.Category, p.Subcategory,
		nonNil(p.Sizes), nonNil(p.Colors), nonNil(p.Tags), p.ImageURL, p.ExternalID,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Stock, &p.Category, &p.Subcategory,
		&p.Sizes, &p.Colors, &p.Tags, &p.ImageURL, &p.ExternalID,
	)
	return p, err
}
