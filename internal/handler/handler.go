// Package handler exposes the storefront and back-office HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/order"
	"github.com/abhirupbose899-web/orephia/internal/domain/product"
	"github.com/abhirupbose899-web/orephia/internal/payment"
)

// OrderService prices carts and manages placed orders.
type OrderService interface {
	Quote(ctx context.Context, req order.QuoteRequest) (*order.Quote, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	GetForUser(ctx context.Context, userID, id string) (*order.Order, error)
	ListForUser(ctx context.Context, userID string) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, to order.Status) (*order.Order, error)
	SettlePayment(ctx context.Context, id, paymentID string) (*order.Order, error)
}

// CouponService previews and manages coupons.
type CouponService interface {
	Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Quote, error)
	Save(ctx context.Context, c *coupon.Coupon) error
	List(ctx context.Context) ([]coupon.Coupon, error)
}

// LoyaltyService reads a customer's points.
type LoyaltyService interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Transactions(ctx context.Context, userID string) ([]loyalty.Transaction, error)
}

// SessionService authenticates customers.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*auth.User, string, time.Time, error)
	Register(ctx context.Context, email, name, password string) (*auth.User, error)
	Issue(u *auth.User) (string, time.Time, error)
	Verify(token string) (*auth.Session, error)
}

// ChargeCreator opens a payment with the gateway.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// APIKeyPepper keys the HMAC of admin API keys.
	APIKeyPepper []byte
	// LoginLimit, when set, wraps the login and register routes.
	LoginLimit func(http.Handler) http.Handler
}

// Deps are the services the Handler delegates to.
type Deps struct {
	Catalog  product.Repository
	Orders   OrderService
	Coupons  CouponService
	Loyalty  LoyaltyService
	Sessions SessionService
	Charges  ChargeCreator
	APIKeys  auth.APIKeyRepository
}

// Handler serves the JSON API under /api.
type Handler struct {
	catalog  product.Repository
	orders   OrderService
	coupons  CouponService
	loyalty  LoyaltyService
	sessions SessionService
	charges  ChargeCreator
	apikeys  auth.APIKeyRepository

	imageBaseURL string
	secureCookie bool
	pepper       []byte
	loginLimit   func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config, deps Deps) *Handler {
	return &Handler{
		catalog:      deps.Catalog,
		orders:       deps.Orders,
		coupons:      deps.Coupons,
		loyalty:      deps.Loyalty,
		sessions:     deps.Sessions,
		charges:      deps.Charges,
		apikeys:      deps.APIKeys,
		imageBaseURL: cfg.ImageBaseURL,
		secureCookie: cfg.SecureCookie,
		pepper:       cfg.APIKeyPepper,
		loginLimit:   cfg.LoginLimit,
	}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.loginLimit != nil {
					r.Use(h.loginLimit)
				}
				r.Post("/login", h.Login)
				r.Post("/register", h.Register)
			})
			r.Post("/logout", h.Logout)
			r.With(h.RequireSession).Get("/me", h.Me)
		})

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Post("/coupons/validate", h.ValidateCoupon)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/checkout/quote", h.QuoteCheckout)
			r.Post("/payments/charge", h.CreateCharge)
			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Get("/loyalty/balance", h.LoyaltyBalance)
			r.Get("/loyalty/transactions", h.LoyaltyTransactions)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/orders", h.AdminListOrders)
			r.Patch("/orders/{id}/status", h.AdminUpdateStatus)
			r.Post("/orders/{id}/payment", h.AdminSettlePayment)
			r.Get("/coupons", h.AdminListCoupons)
			r.Post("/coupons", h.AdminSaveCoupon)
		})
	})
}
