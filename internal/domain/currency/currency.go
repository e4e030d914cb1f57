// Package currency converts amounts between the loyalty valuation currency
// and the order currency.
package currency

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedPair is returned when no rate is known for a currency pair.
var ErrUnsupportedPair = errors.New("unsupported currency pair")

// Rate is the number of To units one From unit is worth, as of AsOf.
type Rate struct {
	From  string
	To    string
	Value decimal.Decimal
	AsOf  time.Time
}

// Convert applies the rate to an amount in the From currency.
func (r Rate) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.Value)
}

// Converter provides exchange rates.
type Converter interface {
	Rate(ctx context.Context, from, to string) (Rate, error)
}

// Normalize uppercases and trims an ISO 4217 code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Static is a Converter backed by a fixed rate table, loaded from
// configuration at startup.
type Static struct {
	rates map[string]decimal.Decimal
	asOf  time.Time
}

var _ Converter = (*Static)(nil)

// NewStatic builds a Static converter. Keys of rates are "FROM:TO" pairs,
// e.g. "INR:USD". Inverse pairs are derived when absent.
func NewStatic(rates map[string]string, asOf time.Time) (*Static, error) {
	s := &Static{
		rates: make(map[string]decimal.Decimal, len(rates)*2),
		asOf:  asOf,
	}
	for pair, raw := range rates {
		from, to, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, errors.Errorf("invalid currency pair %q", pair)
		}
		from, to = Normalize(from), Normalize(to)
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse rate %s", pair)
		}
		if !v.IsPositive() {
			return nil, errors.Errorf("rate %s must be positive", pair)
		}
		s.rates[from+":"+to] = v
	}
	for key, v := range s.rates {
		from, to, _ := strings.Cut(key, ":")
		inverse := to + ":" + from
		if _, ok := s.rates[inverse]; !ok {
			s.rates[inverse] = decimal.NewFromInt(1).DivRound(v, 8)
		}
	}
	return s, nil
}

// Rate returns the configured rate for the pair. Identical currencies
// always convert at 1.
func (s *Static) Rate(_ context.Context, from, to string) (Rate, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return Rate{From: from, To: to, Value: decimal.NewFromInt(1), AsOf: s.asOf}, nil
	}
	v, ok := s.rates[from+":"+to]
	if !ok {
		return Rate{}, errors.Wrapf(ErrUnsupportedPair, "%s to %s", from, to)
	}
	return Rate{From: from, To: to, Value: v, AsOf: s.asOf}, nil
}
