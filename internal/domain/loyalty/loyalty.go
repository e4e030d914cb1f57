// Package loyalty implements the points ledger. A user's balance is derived
// from an append-only list of earned and redeemed transactions.
package loyalty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type discriminates the direction of a transaction.
type Type string

const (
	TypeEarned   Type = "earned"
	TypeRedeemed Type = "redeemed"
)

// ErrInsufficientPoints is returned when a redemption exceeds the balance.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// ErrInvalidPoints is returned for non-positive point amounts.
var ErrInvalidPoints = errors.New("points must be greater than 0")

// Transaction is a single ledger entry. Points is always a positive
// magnitude; Type carries the sign.
type Transaction struct {
	ID          string
	UserID      string
	Type        Type
	Points      int64
	Description string
	OrderID     string
	CreatedAt   time.Time
}

// Repository persists ledger entries.
type Repository interface {
	// Balance returns Σearned − Σredeemed for the user.
	Balance(ctx context.Context, userID string) (int64, error)
	// RedeemIfAvailable appends tx only if the user's balance covers
	// tx.Points, checking and inserting atomically. Returns
	// ErrInsufficientPoints otherwise.
	RedeemIfAvailable(ctx context.Context, tx *Transaction) error
	Append(ctx context.Context, tx *Transaction) error
	Delete(ctx context.Context, id string) error
	// Link attaches an order to an existing transaction.
	Link(ctx context.Context, id, orderID, description string) error
	// List returns the user's transactions, newest first.
	List(ctx context.Context, userID string) ([]Transaction, error)
}

const (
	// PointsPerUnit is how many points are worth one unit of the loyalty
	// currency.
	PointsPerUnit = 100
	// UnitsPerPoint is how many units of spend earn one point.
	UnitsPerPoint = 10
)

var (
	pointsPerUnit = decimal.NewFromInt(PointsPerUnit)
	unitsPerPoint = decimal.NewFromInt(UnitsPerPoint)
)

// PointsEarned returns the points earned for a total expressed in the
// loyalty currency. Fractions are floored; negative totals earn nothing.
func PointsEarned(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Div(unitsPerPoint).Floor().IntPart()
}

// PointsValue returns the loyalty-currency value of the given points.
func PointsValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Div(pointsPerUnit)
}

// PointsFor returns how many whole points are needed to cover value in the
// loyalty currency, floored so the result never exceeds value.
func PointsFor(value decimal.Decimal) int64 {
	if !value.IsPositive() {
		return 0
	}
	return value.Mul(pointsPerUnit).Floor().IntPart()
}
