package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Ledger is the service-level API over the points Repository.
type Ledger struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewLedger creates a Ledger backed by repo.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

// Balance returns the user's current points balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	b, err := l.repo.Balance(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "points balance")
	}
	if b < 0 {
		// Only reachable through manual edits of the ledger table.
		zctx.From(ctx).Warn("Negative points balance",
			zap.String("user_id", userID),
			zap.Int64("balance", b),
		)
		return 0, nil
	}
	return b, nil
}

// Redeem spends points from the user's balance. The returned transaction
// has no order attached yet; use LinkOrder once the order exists, or
// Refund if it could not be created.
func (l *Ledger) Redeem(ctx context.Context, userID string, points int64, description string) (*Transaction, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	tx := &Transaction{
		ID:          l.newID(),
		UserID:      userID,
		Type:        TypeRedeemed,
		Points:      points,
		Description: description,
		CreatedAt:   l.now(),
	}
	if err := l.repo.RedeemIfAvailable(ctx, tx); err != nil {
		if errors.Is(err, ErrInsufficientPoints) {
			return nil, ErrInsufficientPoints
		}
		return nil, errors.Wrap(err, "redeem points")
	}
	return tx, nil
}

// Earn credits points to the user, optionally linked to an order.
func (l *Ledger) Earn(ctx context.Context, userID string, points int64, description, orderID string) (*Transaction, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	tx := &Transaction{
		ID:          l.newID(),
		UserID:      userID,
		Type:        TypeEarned,
		Points:      points,
		Description: description,
		OrderID:     orderID,
		CreatedAt:   l.now(),
	}
	if err := l.repo.Append(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "earn points")
	}
	return tx, nil
}

// Refund undoes a redemption whose order was never created. The redemption
// row is deleted; if that fails, an earned entry of the same size is
// appended instead. Either path restores the pre-redemption balance.
func (l *Ledger) Refund(ctx context.Context, redemption *Transaction) error {
	delErr := l.repo.Delete(ctx, redemption.ID)
	if delErr == nil {
		return nil
	}
	zctx.From(ctx).Warn("Delete redemption failed, appending refund entry",
		zap.String("transaction_id", redemption.ID),
		zap.Error(delErr),
	)
	_, err := l.Earn(ctx, redemption.UserID, redemption.Points,
		fmt.Sprintf("Refund for failed redemption %s", redemption.ID), "")
	if err != nil {
		return errors.Wrapf(err, "refund redemption %s (delete: %v)", redemption.ID, delErr)
	}
	return nil
}

// LinkOrder attaches orderID to a previously created transaction.
func (l *Ledger) LinkOrder(ctx context.Context, txID, orderID, description string) error {
	if err := l.repo.Link(ctx, txID, orderID, description); err != nil {
		return errors.Wrap(err, "link order")
	}
	return nil
}

// Transactions lists the user's ledger entries, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	txs, err := l.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}
	return txs, nil
}
