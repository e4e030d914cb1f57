package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether the order has been paid for.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid
}

var (
	// ErrNotFound is returned when an order does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyPaid is returned when settling an order that is not pending.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrStatusConflict is returned by the store when the order status
	// changed between read and update.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Order is a placed order. Monetary fields are in Currency and satisfy
// Total = Subtotal - Discount - PointsDiscount + Shipping + Tax.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress Address
	Currency        string
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	PointsDiscount  decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	CouponCode      string
	PaymentStatus   PaymentStatus
	Status          Status
	PointsRedeemed  int64
	PointsEarned    int64
	ChargeID        string
	PaymentID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is a line snapshot taken at order time. UnitPrice is the catalog
// price, never a client-supplied one.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Address is the shipping address snapshot stored with an order.
type Address struct {
	FullName     string `json:"fullName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// UpdateStatus moves the order from one status to another, returning
	// ErrStatusConflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
	// MarkPaid flips a pending order to paid, returning ErrAlreadyPaid
	// if it is not pending.
	MarkPaid(ctx context.Context, id, paymentID string, pointsEarned int64, at time.Time) error
}
