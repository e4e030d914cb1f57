package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/currency"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/product"
)

// ErrInvalidPayment is returned when a payment proof does not verify.
var ErrInvalidPayment = errors.New("invalid payment")

// CouponEvaluator validates coupons and records their usage.
type CouponEvaluator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Coupon, error)
	RecordUsage(ctx context.Context, code string) error
}

// PointsLedger is the subset of the loyalty ledger used by settlement.
type PointsLedger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Redeem(ctx context.Context, userID string, points int64, description string) (*loyalty.Transaction, error)
	Earn(ctx context.Context, userID string, points int64, description, orderID string) (*loyalty.Transaction, error)
	Refund(ctx context.Context, redemption *loyalty.Transaction) error
	LinkOrder(ctx context.Context, txID, orderID, description string) error
}

// PaymentVerifier checks a gateway signature over a charge and payment.
type PaymentVerifier interface {
	VerifySignature(chargeID, paymentID, signature string) bool
}

// Notifier is told about placed orders. Errors are logged, never returned
// to the customer.
type Notifier interface {
	OrderPlaced(ctx context.Context, email string, o *Order) error
}

// PaymentProof is the gateway evidence that a charge was paid.
type PaymentProof struct {
	ChargeID  string
	PaymentID string
	Signature string
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Catalog  product.Repository
	Coupons  CouponEvaluator
	Ledger   PointsLedger
	Orders   Repository
	Rates    currency.Converter
	Payments PaymentVerifier
	// Notifier may be nil.
	Notifier Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for settlement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for settlement counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service encapsulates order pricing and settlement.
type Service struct {
	catalog  product.Repository
	coupons  CouponEvaluator
	ledger   PointsLedger
	orders   Repository
	rates    currency.Converter
	payments PaymentVerifier
	notifier Notifier
	pricing  Pricing

	now   func() time.Time
	newID func() string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer

	ordersPlaced   metric.Int64Counter
	pointsRedeemed metric.Int64Counter
	compensations  metric.Int64Counter
}

const (
	instrumentationName = "github.com/abhirupbose899-web/orephia/internal/domain/order"

	// compensationTimeout bounds the points refund after a failed insert.
	compensationTimeout = 10 * time.Second
)

// NewService creates an order Service.
func NewService(pricing Pricing, deps Deps, opts ...Option) (*Service, error) {
	s := &Service{
		catalog:        deps.Catalog,
		coupons:        deps.Coupons,
		ledger:         deps.Ledger,
		orders:         deps.Orders,
		rates:          deps.Rates,
		payments:       deps.Payments,
		notifier:       deps.Notifier,
		pricing:        pricing,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	s.pricing.Currency = currency.Normalize(s.pricing.Currency)
	s.pricing.LoyaltyCurrency = currency.Normalize(s.pricing.LoyaltyCurrency)
	if s.pricing.LoyaltyCurrency == "" {
		s.pricing.LoyaltyCurrency = s.pricing.Currency
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.ordersPlaced, err = meter.Int64Counter("orephia.orders.placed",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if s.pointsRedeemed, err = meter.Int64Counter("orephia.loyalty.points_redeemed",
		metric.WithDescription("Loyalty points spent on orders"),
	); err != nil {
		return nil, errors.Wrap(err, "points counter")
	}
	if s.compensations, err = meter.Int64Counter("orephia.orders.compensations",
		metric.WithDescription("Point redemptions rolled back after a failed order insert"),
	); err != nil {
		return nil, errors.Wrap(err, "compensations counter")
	}
	return s, nil
}

// Pricing returns the effective pricing rules.
func (s *Service) Pricing() Pricing {
	return s.pricing
}

// QuoteRequest is the input for pricing a cart.
type QuoteRequest struct {
	UserID         string
	Items          []CartLine
	CouponCode     string
	PointsToRedeem int64
}

// Quote is a fully priced cart. All amounts are in Currency and rounded
// to cents; Total is derived from the rounded parts.
type Quote struct {
	Currency       string
	Items          []Item
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	PointsDiscount decimal.Decimal
	Shipping       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	// CouponCode is the applied coupon, empty if none was applied.
	CouponCode string
	// CouponErr explains why a supplied coupon was not applied.
	CouponErr error

	PointsRequested int64
	PointsRedeemed  int64
	// PointsEarnable is what the order earns once paid.
	PointsEarnable int64
}

// Quote prices a cart without mutating anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (_ *Quote, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Quote")
	defer func() { endSpan(span, rerr) }()

	return s.quote(ctx, req)
}

func (s *Service) quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.PointsToRedeem < 0 {
		return nil, loyalty.ErrInvalidPoints
	}

	subtotal, items, err := ComputeSubtotal(ctx, req.Items, s.catalog)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		Currency:        s.pricing.Currency,
		Items:           items,
		Subtotal:        subtotal,
		PointsRequested: req.PointsToRedeem,
	}

	code := coupon.NormalizeCode(req.CouponCode)
	var (
		applied   *coupon.Coupon
		couponErr error
		balance   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	if code != "" {
		g.Go(func() error {
			applied, couponErr = s.coupons.Validate(gctx, code, subtotal)
			return nil
		})
	}
	if req.PointsToRedeem > 0 {
		g.Go(func() error {
			b, err := s.ledger.Balance(gctx, req.UserID)
			if err != nil {
				return err
			}
			balance = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case couponErr != nil:
		q.CouponErr = couponErr
		zctx.From(ctx).Info("Coupon not applied",
			zap.String("code", code),
			zap.Error(couponErr),
		)
	case applied != nil:
		q.Discount = decimal.Min(coupon.ComputeDiscount(applied, subtotal), subtotal)
		q.CouponCode = applied.Code
	}

	if req.PointsToRedeem > 0 {
		if req.PointsToRedeem > balance {
			return nil, loyalty.ErrInsufficientPoints
		}
		if err := s.applyPoints(ctx, q, req.PointsToRedeem); err != nil {
			return nil, err
		}
	}

	taxable := q.Subtotal.Sub(q.Discount).Sub(q.PointsDiscount)
	q.Shipping = s.pricing.ShippingFor(q.Subtotal)
	q.Tax = s.pricing.TaxFor(taxable)
	q.Total = taxable.Add(q.Shipping).Add(q.Tax)

	q.PointsEarnable, err = s.pointsEarnedFor(ctx, q.Total)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// applyPoints converts the requested points into an order-currency discount
// and clamps it so the discounted subtotal never goes below zero. When
// clamped, the points actually spent are recomputed from the clamped value.
func (s *Service) applyPoints(ctx context.Context, q *Quote, points int64) error {
	rate, err := s.rates.Rate(ctx, s.pricing.LoyaltyCurrency, s.pricing.Currency)
	if err != nil {
		return errors.Wrap(err, "points rate")
	}

	remaining := q.Subtotal.Sub(q.Discount)
	requested := rate.Convert(loyalty.PointsValue(points))
	if requested.LessThanOrEqual(remaining) {
		q.PointsRedeemed = points
		q.PointsDiscount = requested.Round(2)
		return nil
	}

	// Points are floored, so their exact value may sit a fraction of a cent
	// below remaining. The discount is rounded half up to cents and never
	// exceeds remaining.
	actual := loyalty.PointsFor(remaining.Div(rate.Value))
	q.PointsRedeemed = actual
	q.PointsDiscount = decimal.Min(rate.Convert(loyalty.PointsValue(actual)).Round(2), remaining)
	return nil
}

func (s *Service) pointsEarnedFor(ctx context.Context, total decimal.Decimal) (int64, error) {
	rate, err := s.rates.Rate(ctx, s.pricing.Currency, s.pricing.LoyaltyCurrency)
	if err != nil {
		return 0, errors.Wrap(err, "earning rate")
	}
	return loyalty.PointsEarned(rate.Convert(total)), nil
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID          string
	Email           string
	Items           []CartLine
	ShippingAddress Address
	CouponCode      string
	PointsToRedeem  int64
	// PaymentStatus is the client's hint. Paid is honoured only with a
	// verified Payment proof.
	PaymentStatus PaymentStatus
	Payment       *PaymentProof
}

// PlaceOrder prices the cart, spends points, stores the order and then
// performs the best-effort follow-ups: coupon usage, points earning and
// the confirmation email. If the order cannot be stored after points were
// spent, the redemption is refunded before the error is returned.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer func() { endSpan(span, rerr) }()
	lg := zctx.From(ctx)

	paymentStatus, err := s.resolvePayment(req)
	if err != nil {
		return nil, err
	}

	q, err := s.quote(ctx, QuoteRequest{
		UserID:         req.UserID,
		Items:          req.Items,
		CouponCode:     req.CouponCode,
		PointsToRedeem: req.PointsToRedeem,
	})
	if err != nil {
		return nil, err
	}

	var redemption *loyalty.Transaction
	if q.PointsRedeemed > 0 {
		redemption, err = s.ledger.Redeem(ctx, req.UserID, q.PointsRedeemed, "Redeemed at checkout")
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	o := &Order{
		ID:              s.newID(),
		UserID:          req.UserID,
		Items:           q.Items,
		ShippingAddress: req.ShippingAddress,
		Currency:        q.Currency,
		Subtotal:        q.Subtotal,
		Discount:        q.Discount,
		PointsDiscount:  q.PointsDiscount,
		Shipping:        q.Shipping,
		Tax:             q.Tax,
		Total:           q.Total,
		CouponCode:      q.CouponCode,
		PaymentStatus:   paymentStatus,
		Status:          StatusProcessing,
		PointsRedeemed:  q.PointsRedeemed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Payment != nil {
		o.ChargeID = req.Payment.ChargeID
		o.PaymentID = req.Payment.PaymentID
	}
	if paymentStatus == PaymentPaid {
		o.PointsEarned = q.PointsEarnable
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if redemption != nil {
			s.compensate(ctx, redemption)
		}
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	if redemption != nil {
		s.pointsRedeemed.Add(ctx, redemption.Points)
		if err := s.ledger.LinkOrder(ctx, redemption.ID, o.ID, fmt.Sprintf("Redeemed for order %s", o.ID)); err != nil {
			lg.Warn("Link redemption to order failed",
				zap.String("order_id", o.ID),
				zap.String("transaction_id", redemption.ID),
				zap.Error(err),
			)
		}
	}

	if o.CouponCode != "" && o.Discount.IsPositive() {
		if err := s.coupons.RecordUsage(ctx, o.CouponCode); err != nil {
			lg.Warn("Record coupon usage failed",
				zap.String("order_id", o.ID),
				zap.String("code", o.CouponCode),
				zap.Error(err),
			)
		}
	}

	if o.PaymentStatus == PaymentPaid && o.PointsEarned > 0 {
		s.earn(ctx, o)
	}

	s.ordersPlaced.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_status", string(o.PaymentStatus)),
	))
	s.notify(ctx, req.Email, o)

	return o, nil
}

func (s *Service) resolvePayment(req PlaceOrderRequest) (PaymentStatus, error) {
	if req.PaymentStatus != "" && !req.PaymentStatus.Valid() {
		return "", errors.Wrapf(ErrInvalidPayment, "unknown payment status %q", req.PaymentStatus)
	}
	if req.PaymentStatus != PaymentPaid || req.Payment == nil {
		return PaymentPending, nil
	}
	p := req.Payment
	if s.payments == nil || !s.payments.VerifySignature(p.ChargeID, p.PaymentID, p.Signature) {
		return "", errors.Wrap(ErrInvalidPayment, "signature mismatch")
	}
	return PaymentPaid, nil
}

// compensate refunds a redemption whose order was not created. It runs
// detached from ctx, which may already be cancelled by the failed insert.
func (s *Service) compensate(ctx context.Context, redemption *loyalty.Transaction) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	s.compensations.Add(ctx, 1)
	if err := s.ledger.Refund(ctx, redemption); err != nil {
		zctx.From(ctx).Error("Points refund failed, manual reconciliation required",
			zap.String("user_id", redemption.UserID),
			zap.String("transaction_id", redemption.ID),
			zap.Int64("points", redemption.Points),
			zap.Error(err),
		)
	}
}

func (s *Service) earn(ctx context.Context, o *Order) {
	_, err := s.ledger.Earn(ctx, o.UserID, o.PointsEarned, fmt.Sprintf("Earned from order %s", o.ID), o.ID)
	if err != nil {
		zctx.From(ctx).Warn("Credit earned points failed",
			zap.String("order_id", o.ID),
			zap.Int64("points", o.PointsEarned),
			zap.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, email string, o *Order) {
	if s.notifier == nil || email == "" {
		return
	}
	if err := s.notifier.OrderPlaced(ctx, email, o); err != nil {
		zctx.From(ctx).Warn("Order confirmation email failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
