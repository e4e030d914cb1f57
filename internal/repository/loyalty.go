package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
)

const (
	balanceSQL = `SELECT COALESCE(SUM(CASE WHEN type = 'earned' THEN points ELSE -points END), 0)
		FROM loyalty_transactions WHERE user_id = $1`

	// Serialises redemptions per user for the rest of the transaction.
	lockUserPointsSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	insertLoyaltyTxSQL = `INSERT INTO loyalty_transactions
		(id, user_id, type, points, description, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`

	deleteLoyaltyTxSQL = `DELETE FROM loyalty_transactions WHERE id = $1`

	linkLoyaltyTxSQL = `UPDATE loyalty_transactions SET order_id = $2, description = $3 WHERE id = $1`

	listLoyaltyTxSQL = `SELECT id, user_id, type, points, description, COALESCE(order_id, ''), created_at
		FROM loyalty_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Repository backed by PostgreSQL.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Balance sums the user's ledger.
func (r *LoyaltyRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var b int64
	if err := r.pool.QueryRow(ctx, balanceSQL, userID).Scan(&b); err != nil {
		return 0, fmt.Errorf("summing points for user %q: %w", userID, err)
	}
	return b, nil
}

// RedeemIfAvailable takes a per-user advisory lock, re-reads the balance
// and inserts the redemption only if it is covered, all in one transaction.
func (r *LoyaltyRepository) RedeemIfAvailable(ctx context.Context, tx *loyalty.Transaction) error {
	dbtx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin redemption: %w", err)
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	if _, err := dbtx.Exec(ctx, lockUserPointsSQL, tx.UserID); err != nil {
		return fmt.Errorf("locking points for user %q: %w", tx.UserID, err)
	}
	var balance int64
	if err := dbtx.QueryRow(ctx, balanceSQL, tx.UserID).Scan(&balance); err != nil {
		return fmt.Errorf("summing points for user %q: %w", tx.UserID, err)
	}
	if balance < tx.Points {
		return loyalty.ErrInsufficientPoints
	}
	if _, err := dbtx.Exec(ctx, insertLoyaltyTxSQL, txArgs(tx)...); err != nil {
		return fmt.Errorf("inserting redemption %q: %w", tx.ID, err)
	}
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit redemption: %w", err)
	}
	return nil
}

// Append inserts a ledger entry.
func (r *LoyaltyRepository) Append(ctx context.Context, tx *loyalty.Transaction) error {
	if _, err := r.pool.Exec(ctx, insertLoyaltyTxSQL, txArgs(tx)...); err != nil {
		return fmt.Errorf("inserting loyalty transaction %q: %w", tx.ID, err)
	}
	return nil
}

// Delete removes a ledger entry. Deleting a missing entry is an error so
// that compensation falls back to a refund entry.
func (r *LoyaltyRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteLoyaltyTxSQL, id)
	if err != nil {
		return fmt.Errorf("deleting loyalty transaction %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loyalty transaction %q not found", id)
	}
	return nil
}

// Link attaches an order to a ledger entry.
func (r *LoyaltyRepository) Link(ctx context.Context, id, orderID, description string) error {
	tag, err := r.pool.Exec(ctx, linkLoyaltyTxSQL, id, orderID, description)
	if err != nil {
		return fmt.Errorf("linking loyalty transaction %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loyalty transaction %q not found", id)
	}
	return nil
}

// List returns the user's entries, newest first.
func (r *LoyaltyRepository) List(ctx context.Context, userID string) ([]loyalty.Transaction, error) {
	rows, err := r.pool.Query(ctx, listLoyaltyTxSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing loyalty transactions for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (loyalty.Transaction, error) {
		var (
			tx  loyalty.Transaction
			typ string
		)
		err := row.Scan(&tx.ID, &tx.UserID, &typ, &tx.Points, &tx.Description, &tx.OrderID, &tx.CreatedAt)
		tx.Type = loyalty.Type(typ)
		return tx, err
	})
}

func txArgs(tx *loyalty.Transaction) []any {
	return []any{tx.ID, tx.UserID, string(tx.Type), tx.Points, tx.Description, tx.OrderID, tx.CreatedAt}
}
