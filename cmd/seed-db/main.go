package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/abhirupbose899-web/orephia/internal/domain/auth"
	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/loyalty"
	"github.com/abhirupbose899-web/orephia/internal/domain/product"
	"github.com/abhirupbose899-web/orephia/internal/repository"
)

const welcomePoints = 500

type options struct {
	databaseURL  string
	productsFile string
	apiKey       string
	apiKeyPepper string
	userEmail    string
	userPassword string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or OREPHIA_DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.apiKey, "api-key", "", "admin API key to seed (or OREPHIA_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or OREPHIA_API_KEY_PEPPER env)")
	flag.StringVar(&opts.userEmail, "user-email", "demo@orephia.test", "demo customer email")
	flag.StringVar(&opts.userPassword, "user-password", "", "demo customer password (or OREPHIA_SEED_USER_PASSWORD env), skipped when empty")
	flag.Parse()

	fromEnv(&opts.databaseURL, "OREPHIA_DATABASE_URL")
	fromEnv(&opts.apiKey, "OREPHIA_SEED_API_KEY")
	fromEnv(&opts.apiKeyPepper, "OREPHIA_API_KEY_PEPPER")
	fromEnv(&opts.userPassword, "OREPHIA_SEED_USER_PASSWORD")

	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or OREPHIA_DATABASE_URL")
		os.Exit(1)
	}
	if opts.apiKey == "" {
		slog.Error("API key is required: set --api-key or OREPHIA_SEED_API_KEY")
		os.Exit(1)
	}
	if opts.apiKeyPepper == "" {
		slog.Error("API key pepper is required: set --api-key-pepper or OREPHIA_API_KEY_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, coupon.NewEvaluator(repository.NewCouponRepository(pool))); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), opts.apiKey, opts.apiKeyPepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if opts.userPassword != "" {
		if err := seedCustomer(ctx, pool, opts.userEmail, opts.userPassword); err != nil {
			return errors.Wrap(err, "seed customer")
		}
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	products, err := decodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("title", p.Title))
	}

	return nil
}

func decodeProducts(data []byte) ([]product.Product, error) {
	var products []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				p.ID, err = d.Str()
			case "title":
				p.Title, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "price":
				var s string
				if s, err = d.Str(); err == nil {
					p.Price, err = decimal.NewFromString(s)
				}
			case "stock":
				p.Stock, err = d.Int()
			case "category":
				p.Category, err = d.Str()
			case "subcategory":
				p.Subcategory, err = d.Str()
			case "sizes":
				p.Sizes, err = decodeStrings(d)
			case "colors":
				p.Colors, err = decodeStrings(d)
			case "tags":
				p.Tags, err = decodeStrings(d)
			case "image":
				p.ImageURL, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if p.ID == "" {
			return errors.Errorf("product %q has no id", p.Title)
		}
		products = append(products, p)
		return nil
	})
	return products, err
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		out = append(out, s)
		return err
	})
	return out, err
}

func seedCoupons(ctx context.Context, coupons *coupon.Evaluator) error {
	slog.Info("seeding launch coupons")

	seed := []*coupon.Coupon{
		{
			Code:         "WELCOME10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			Description:  "10% off your first order",
			Active:       true,
		},
		{
			Code:         "SEASON20",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(20),
			Description:  "20% off orders over 200, up to 50 off",
			MinPurchase:  decimal.NewNullDecimal(decimal.NewFromInt(200)),
			MaxDiscount:  decimal.NewNullDecimal(decimal.NewFromInt(50)),
			Active:       true,
		},
		{
			Code:         "FLAT15",
			DiscountType: coupon.DiscountFixed,
			Value:        decimal.NewFromInt(15),
			Description:  "15 off orders over 75",
			MinPurchase:  decimal.NewNullDecimal(decimal.NewFromInt(75)),
			UsageLimit:   ptr(1000),
			Active:       true,
		},
	}

	for _, c := range seed {
		if err := coupons.Save(ctx, c); err != nil {
			return errors.Wrapf(err, "save coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}

	return nil
}

func seedAPIKey(ctx context.Context, keys auth.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	hash := auth.HashAPIKeyHex([]byte(pepper), apiKey)
	info := &auth.APIKeyInfo{
		ID:      "admin-" + hash[:12],
		KeyHash: hash,
		Name:    "Back office",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := keys.Create(ctx, info); err != nil {
		return errors.Wrap(err, "upsert admin API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))

	return nil
}

// seedCustomer creates the demo account and credits its welcome points once.
func seedCustomer(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	users := repository.NewUserRepository(pool)
	email = auth.NormalizeEmail(email)

	u, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		u = &auth.User{
			ID:           uuid.New().String(),
			Email:        email,
			Name:         "Demo Customer",
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := users.Create(ctx, u); err != nil {
			return errors.Wrap(err, "create user")
		}
		slog.Info("created customer", slog.String("email", email))
	case err != nil:
		return errors.Wrap(err, "find user")
	}

	ledger := loyalty.NewLedger(repository.NewLoyaltyRepository(pool))
	balance, err := ledger.Balance(ctx, u.ID)
	if err != nil {
		return errors.Wrap(err, "loyalty balance")
	}
	if balance > 0 {
		return nil
	}
	if _, err := ledger.Earn(ctx, u.ID, welcomePoints, "Welcome bonus", ""); err != nil {
		return errors.Wrap(err, "credit welcome points")
	}
	slog.Info("credited welcome points", slog.String("email", email), slog.Int("points", welcomePoints))

	return nil
}

func ptr[T any](v T) *T { return &v }
