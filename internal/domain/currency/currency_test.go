package currency

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Rate(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conv, err := NewStatic(map[string]string{
		"inr:usd": "0.012",
		"EUR:USD": "1.10",
		"USD:EUR": "0.90",
	}, asOf)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to string
		want     string
		wantErr  error
	}{
		{name: "same currency", from: "usd", to: "USD", want: "1"},
		{name: "configured pair", from: "INR", to: "USD", want: "0.012"},
		{name: "derived inverse", from: "USD", to: "INR", want: "83.33333333"},
		{name: "explicit inverse kept", from: "USD", to: "EUR", want: "0.9"},
		{name: "unknown pair", from: "GBP", to: "USD", wantErr: ErrUnsupportedPair},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := conv.Rate(context.Background(), tt.from, tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(r.Value), "got %s", r.Value)
			assert.Equal(t, asOf, r.AsOf)
			assert.Equal(t, Normalize(tt.from), r.From)
		})
	}
}

func TestNewStatic_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rates map[string]string
	}{
		{name: "missing separator", rates: map[string]string{"INRUSD": "0.01"}},
		{name: "not a number", rates: map[string]string{"INR:USD": "abc"}},
		{name: "zero", rates: map[string]string{"INR:USD": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.rates, time.Now())
			require.Error(t, err)
		})
	}
}

func TestRate_Convert(t *testing.T) {
	r := Rate{Value: decimal.RequireFromString("0.5")}
	assert.True(t, decimal.RequireFromString("2.5").Equal(r.Convert(decimal.NewFromInt(5))))
}
