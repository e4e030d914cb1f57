// Package app wires the API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/currency"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/order"
	"github.com/abhirupbose899-web/orephia/internal/email"
	"github.com/abhirupbose899-web/orephia/internal/handler"
	"github.com/abhirupbose899-web/orephia/internal/payment"
	"github.com/abhirupbose899-web/orephia/internal/repository"
	"github.com/abhirupbose899-web/orephia/pkg/health"
	"github.com/abhirupbose899-web/orephia/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pricing, err := cfg.Pricing.Rules(cfg.Loyalty.Currency)
	if err != nil {
		return errors.Wrap(err, "pricing")
	}
	table, asOf, err := cfg.Rates.Table()
	if err != nil {
		return errors.Wrap(err, "rates")
	}
	rates, err := currency.NewStatic(table, asOf)
	if err != nil {
		return errors.Wrap(err, "rates")
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	loyaltyRepo := repository.NewLoyaltyRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Domain services.
	coupons := coupon.NewEvaluator(couponRepo)
	ledger := loyalty.NewLedger(loyaltyRepo)
	sessions := auth.NewService(userRepo, []byte(cfg.SessionSecret), cfg.SessionTTL)

	deps := order.Deps{
		Catalog: productRepo,
		Coupons: coupons,
		Ledger:  ledger,
		Orders:  orderRepo,
		Rates:   rates,
	}
	var charges handler.ChargeCreator
	if cfg.Stripe.APIKey != "" {
		gw, err := payment.New(payment.Config{
			APIKey:          cfg.Stripe.APIKey,
			SignatureSecret: cfg.Stripe.SignatureSecret,
		})
		if err != nil {
			return errors.Wrap(err, "payment gateway")
		}
		deps.Payments = gw
		charges = gw
	} else {
		lg.Warn("Stripe is not configured, orders stay pending until settled by the back office")
	}
	if cfg.Email.APIKey != "" {
		client := email.NewClient(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From, nil)
		deps.Notifier = email.NewNotifier(client)
	}

	orders, err := order.NewService(pricing, deps,
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "order service")
	}

	h := handler.NewHandler(handler.Config{
		ImageBaseURL: cfg.ImageBaseURL,
		SecureCookie: cfg.SecureCookie,
		APIKeyPepper: []byte(cfg.APIKeyPepper),
		LoginLimit: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.LoginMax,
			Window: cfg.RateLimit.Window,
		}),
	}, handler.Deps{
		Catalog:  productRepo,
		Orders:   orders,
		Coupons:  coupons,
		Loyalty:  ledger,
		Sessions: sessions,
		Charges:  charges,
		APIKeys:  apikeyRepo,
	})

	router := chi.NewRouter()
	router.Use(
		httpmiddleware.Instrument("orephia-api", httpmiddleware.ChiRouteFinder, m.TracerProvider(), m.MeterProvider()),
		httpmiddleware.LogRequests(httpmiddleware.ChiRouteFinder),
		httpmiddleware.Labeler(httpmiddleware.ChiRouteFinder),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "Idempotency-Key", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
