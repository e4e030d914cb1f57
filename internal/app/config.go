package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

// Config holds the complete application configuration, loadable from
// environment variables (OREPHIA_ prefix), a .env file, flags, or YAML
// config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (OREPHIA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL  string        `default:"" usage:"Base URL for product images" flag:"image-base-url"`
	APIKeyPepper  string        `usage:"HMAC pepper for admin API key hashing" flag:"api-key-pepper"`
	SessionSecret string        `usage:"HS256 secret for customer session tokens" flag:"session-secret"`
	SessionTTL    time.Duration `default:"168h" usage:"Customer session lifetime" flag:"session-ttl"`
	SecureCookie  bool          `default:"true" usage:"Mark the session cookie Secure" flag:"secure-cookie"`
	Pricing       PricingConfig
	Loyalty       LoyaltyConfig
	Rates         RatesConfig
	Stripe        StripeConfig
	Email         EmailConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PricingConfig holds the store currency and shipping and tax rules.
type PricingConfig struct {
	Currency              string `default:"USD" usage:"Currency of catalog prices and orders"`
	ShippingFee           string `default:"10" usage:"Flat shipping fee" flag:"shipping-fee"`
	FreeShippingThreshold string `default:"100" usage:"Subtotal above which shipping is free" flag:"free-shipping-threshold"`
	TaxRate               string `default:"0.08" usage:"Tax rate as a fraction" flag:"tax-rate"`
}

// LoyaltyConfig holds the points valuation currency.
type LoyaltyConfig struct {
	Currency string `default:"" usage:"Currency points are valued in; defaults to the store currency"`
}

// RatesConfig is the static exchange rate table.
type RatesConfig struct {
	// Pairs are "FROM/TO=rate" entries, e.g. "INR/USD=0.012".
	Pairs []string `usage:"Exchange rates as FROM/TO=rate"`
	AsOf  string   `default:"" usage:"RFC 3339 date the rates were published" flag:"rates-as-of"`
}

// StripeConfig configures the payment gateway.
type StripeConfig struct {
	APIKey          string `usage:"Stripe secret key" flag:"stripe-api-key"`
	SignatureSecret string `usage:"HMAC secret for payment confirmation signatures" flag:"stripe-signature-secret"`
}

// EmailConfig configures order confirmation emails. Emails are disabled
// when APIKey is empty.
type EmailConfig struct {
	APIKey  string `usage:"Email provider API key" flag:"email-api-key"`
	From    string `default:"Orephia <orders@orephia.com>" usage:"Sender address" flag:"email-from"`
	BaseURL string `default:"" usage:"Email provider base URL" flag:"email-base-url"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max      int           `default:"100" usage:"Max requests per window"`
	Window   time.Duration `default:"1m"  usage:"Rate limit window duration"`
	LoginMax int           `default:"10"  usage:"Max login and register attempts per window" flag:"login-max"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads an optional .env file, then configuration from
// environment variables and YAML config files, and validates it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "OREPHIA",
		Files:     []string{"config.yaml", "/etc/orephia/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set OREPHIA_DATABASE_URL or DATABASE_URL")
	case c.SessionSecret == "":
		return errors.New("session secret is required: set OREPHIA_SESSION_SECRET")
	case c.APIKeyPepper == "":
		return errors.New("api key pepper is required: set OREPHIA_API_KEY_PEPPER")
	}
	if _, err := c.Pricing.Rules(c.Loyalty.Currency); err != nil {
		return err
	}
	if _, _, err := c.Rates.Table(); err != nil {
		return err
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Rules parses the pricing section.
func (p PricingConfig) Rules(loyaltyCurrency string) (order.Pricing, error) {
	parse := func(name, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "pricing %s %q", name, v)
		}
		if d.IsNegative() {
			return decimal.Zero, errors.Errorf("pricing %s must not be negative", name)
		}
		return d, nil
	}
	fee, err := parse("shipping fee", p.ShippingFee)
	if err != nil {
		return order.Pricing{}, err
	}
	threshold, err := parse("free shipping threshold", p.FreeShippingThreshold)
	if err != nil {
		return order.Pricing{}, err
	}
	tax, err := parse("tax rate", p.TaxRate)
	if err != nil {
		return order.Pricing{}, err
	}
	return order.Pricing{
		Currency:              strings.ToUpper(p.Currency),
		ShippingFee:           fee,
		FreeShippingThreshold: threshold,
		TaxRate:               tax,
		LoyaltyCurrency:       strings.ToUpper(loyaltyCurrency),
	}, nil
}

// Table parses the rate pairs into the "FROM:TO" form used by
// currency.NewStatic.
func (r RatesConfig) Table() (map[string]string, time.Time, error) {
	asOf := time.Time{}
	if r.AsOf != "" {
		t, err := time.Parse(time.RFC3339, r.AsOf)
		if err != nil {
			return nil, time.Time{}, errors.Wrap(err, "rates as-of")
		}
		asOf = t
	}
	table := make(map[string]string, len(r.Pairs))
	for _, pair := range r.Pairs {
		codes, rate, ok := strings.Cut(strings.TrimSpace(pair), "=")
		from, to, ok2 := strings.Cut(codes, "/")
		if !ok || !ok2 {
			return nil, time.Time{}, errors.Errorf("rate %q: want FROM/TO=rate", pair)
		}
		table[strings.ToUpper(from)+":"+strings.ToUpper(to)] = rate
	}
	return table, asOf, nil
}
