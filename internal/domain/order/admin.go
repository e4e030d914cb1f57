package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrOrderCancelled is returned when settling payment on a cancelled order.
var ErrOrderCancelled = errors.New("order is cancelled")

// Get returns any order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetForUser returns the order only if it belongs to userID.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus moves an order along the fulfilment state machine.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", string(to)),
	))
	defer func() { endSpan(span, rerr) }()

	if !to.Valid() {
		return nil, &InvalidStatusError{Status: string(to)}
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}

	now := s.now()
	if err := s.orders.UpdateStatus(ctx, id, o.Status, to, now); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = to
	o.UpdatedAt = now
	return o, nil
}

// SettlePayment marks a pending order as paid and credits the points the
// order earns. It is the only path by which a pending order earns points.
func (s *Service) SettlePayment(ctx context.Context, id, paymentID string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.SettlePayment",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if o.Status == StatusCancelled {
		return nil, ErrOrderCancelled
	}

	points, err := s.pointsEarnedFor(ctx, o.Total)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.orders.MarkPaid(ctx, id, paymentID, points, now); err != nil {
		return nil, err
	}
	o.PaymentStatus = PaymentPaid
	o.PointsEarned = points
	o.UpdatedAt = now
	if paymentID != "" {
		o.PaymentID = paymentID
	}

	if points > 0 {
		s.earn(ctx, o)
	}
	return o, nil
}
