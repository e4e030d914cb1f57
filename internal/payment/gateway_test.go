package payment

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type mockIntents struct {
	last *stripe.PaymentIntentParams
	err  error
}

func (m *mockIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	m.last = params
	if m.err != nil {
		return nil, m.err
	}
	return &stripe.PaymentIntent{
		ID:           "pi_123",
		Amount:       *params.Amount,
		Currency:     stripe.Currency(*params.Currency),
		ClientSecret: "pi_123_secret",
	}, nil
}

func TestCreateCharge(t *testing.T) {
	intents := &mockIntents{}
	g := newGateway(intents, []byte("secret"))

	ch, err := g.CreateCharge(context.Background(), ChargeRequest{
		Amount:         8776,
		Currency:       "USD",
		IdempotencyKey: "cart-1",
		Metadata:       map[string]string{"user_id": "u1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", ch.ID)
	assert.Equal(t, int64(8776), ch.Amount)
	assert.Equal(t, "USD", ch.Currency)
	assert.Equal(t, "pi_123_secret", ch.ClientSecret)

	require.NotNil(t, intents.last)
	assert.Equal(t, "usd", *intents.last.Currency)
	assert.Equal(t, "cart-1", *intents.last.IdempotencyKey)
	assert.Equal(t, "u1", intents.last.Metadata["user_id"])
}

func TestCreateCharge_Errors(t *testing.T) {
	g := newGateway(&mockIntents{err: errors.New("card_declined")}, []byte("secret"))

	_, err := g.CreateCharge(context.Background(), ChargeRequest{Amount: 100, Currency: "usd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card_declined")

	_, err = g.CreateCharge(context.Background(), ChargeRequest{Amount: 0, Currency: "usd"})
	require.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	g := newGateway(&mockIntents{}, []byte("secret"))
	sig := g.Sign("pi_123", "pay_456")

	tests := []struct {
		name      string
		chargeID  string
		paymentID string
		signature string
		want      bool
	}{
		{name: "valid", chargeID: "pi_123", paymentID: "pay_456", signature: sig, want: true},
		{name: "swapped ids", chargeID: "pay_456", paymentID: "pi_123", signature: sig},
		{name: "other payment", chargeID: "pi_123", paymentID: "pay_789", signature: sig},
		{name: "not hex", chargeID: "pi_123", paymentID: "pay_456", signature: "zz"},
		{name: "empty signature", chargeID: "pi_123", paymentID: "pay_456"},
		{name: "empty charge", paymentID: "pay_456", signature: sig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.VerifySignature(tt.chargeID, tt.paymentID, tt.signature))
		})
	}

	other := newGateway(&mockIntents{}, []byte("other"))
	assert.False(t, other.VerifySignature("pi_123", "pay_456", sig))
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"87.76", "USD", 8776},
		{"10", "inr", 1000},
		{"1500", "JPY", 1500},
		{"0.005", "EUR", 1},
	}
	for _, tt := range tests {
		t.Run(tt.currency+" "+tt.amount, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ToMinorUnits(decimal.NewFromInt(1), "XXXX")
	require.Error(t, err)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{SignatureSecret: "s"})
	require.Error(t, err)
	_, err = New(Config{APIKey: "sk_test"})
	require.Error(t, err)
}
