// Package payment creates charges with the payment provider and verifies
// the signatures returned to the storefront after a successful payment.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"golang.org/x/text/currency"
)

// Charge is a provider-side payment awaiting completion by the customer.
type Charge struct {
	ID           string
	Amount       int64
	Currency     string
	ClientSecret string
}

// ChargeRequest describes a charge to create. Amount is in minor units.
type ChargeRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Config configures a Gateway.
type Config struct {
	APIKey string
	// SignatureSecret keys the HMAC over charge and payment ids.
	SignatureSecret string
	Backends        *stripe.Backends
}

// Gateway talks to Stripe for charge creation and checks payment signatures
// locally.
type Gateway struct {
	intents intentAPI
	secret  []byte
}

// New creates a Gateway.
func New(cfg Config) (*Gateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("payment: api key is required")
	}
	if cfg.SignatureSecret == "" {
		return nil, errors.New("payment: signature secret is required")
	}
	sc := client.New(apiKey, cfg.Backends)
	return newGateway(sc.PaymentIntents, []byte(cfg.SignatureSecret)), nil
}

func newGateway(intents intentAPI, secret []byte) *Gateway {
	return &Gateway{intents: intents, secret: secret}
}

// CreateCharge creates a payment intent for the given amount.
func (g *Gateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Amount <= 0 {
		return nil, errors.Errorf("payment: amount must be positive, got %d", req.Amount)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, errors.Wrap(err, "payment: create intent")
	}
	return &Charge{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of "chargeID|paymentID".
func (g *Gateway) Sign(chargeID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(chargeID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature was produced for the charge
// and payment pair.
func (g *Gateway) VerifySignature(chargeID, paymentID, signature string) bool {
	if chargeID == "" || paymentID == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(g.Sign(chargeID, paymentID))
	return hmac.Equal(got, want)
}

// ToMinorUnits converts an amount to the smallest unit of the currency,
// honouring currencies without cents.
func ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return 0, errors.Wrapf(err, "parse currency %q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart(), nil
}
