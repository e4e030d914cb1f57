package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	coupons    map[string]*Coupon
	findErr    error
	increments map[string]int
	upserted   []*Coupon
}

func newMockRepo(coupons ...*Coupon) *mockRepo {
	m := &mockRepo{
		coupons:    make(map[string]*Coupon, len(coupons)),
		increments: make(map[string]int),
	}
	for _, c := range coupons {
		m.coupons[c.Code] = c
	}
	return m
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) IncrementUses(_ context.Context, code string) error {
	c, ok := m.coupons[code]
	if !ok {
		return ErrCouponNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrCouponExhausted
	}
	c.UsedCount++
	m.increments[code]++
	return nil
}

func (m *mockRepo) Upsert(_ context.Context, c *Coupon) error {
	m.upserted = append(m.upserted, c)
	m.coupons[c.Code] = c
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]Coupon, error) {
	out := make([]Coupon, 0, len(m.coupons))
	for _, c := range m.coupons {
		out = append(out, *c)
	}
	return out, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(repo Repository) *Evaluator {
	e := NewEvaluator(repo)
	e.now = func() time.Time { return fixedNow }
	return e
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name     string
		coupon   Coupon
		subtotal string
		want     string
	}{
		{
			name:     "percentage capped by max discount",
			coupon:   Coupon{DiscountType: DiscountPercentage, Value: dec("20"), MaxDiscount: nullDec("50")},
			subtotal: "1000",
			want:     "50",
		},
		{
			name:     "percentage under cap",
			coupon:   Coupon{DiscountType: DiscountPercentage, Value: dec("20"), MaxDiscount: nullDec("50")},
			subtotal: "100",
			want:     "20",
		},
		{
			name:     "percentage without cap",
			coupon:   Coupon{DiscountType: DiscountPercentage, Value: dec("10")},
			subtotal: "80",
			want:     "8",
		},
		{
			name:     "percentage rounds to cents",
			coupon:   Coupon{DiscountType: DiscountPercentage, Value: dec("15")},
			subtotal: "33.33",
			want:     "5",
		},
		{
			name:     "fixed ignores subtotal",
			coupon:   Coupon{DiscountType: DiscountFixed, Value: dec("25")},
			subtotal: "10",
			want:     "25",
		},
		{
			name:     "unknown type grants nothing",
			coupon:   Coupon{DiscountType: "bogus", Value: dec("25")},
			subtotal: "100",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscount(&tt.coupon, dec(tt.subtotal))
			assert.True(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *Coupon
		code     string
		subtotal string
		wantErr  error
	}{
		{
			name:     "unknown code",
			code:     "NOPE",
			subtotal: "100",
			wantErr:  ErrCouponNotFound,
		},
		{
			name:     "inactive",
			coupon:   &Coupon{Code: "OFF", DiscountType: DiscountFixed, Value: dec("5")},
			code:     "off",
			subtotal: "100",
			wantErr:  ErrCouponInactive,
		},
		{
			name: "expired",
			coupon: &Coupon{
				Code: "OLD", DiscountType: DiscountFixed, Value: dec("5"), Active: true,
				ExpiresAt: timePtr(fixedNow.Add(-time.Minute)),
			},
			code:     "OLD",
			subtotal: "100",
			wantErr:  ErrCouponExpired,
		},
		{
			name: "exhausted",
			coupon: &Coupon{
				Code: "ONCE", DiscountType: DiscountFixed, Value: dec("5"), Active: true,
				UsageLimit: intPtr(1), UsedCount: 1,
			},
			code:     "ONCE",
			subtotal: "100",
			wantErr:  ErrCouponExhausted,
		},
		{
			name: "below minimum",
			coupon: &Coupon{
				Code: "MIN200", DiscountType: DiscountFixed, Value: dec("5"), Active: true,
				MinPurchase: nullDec("200"),
			},
			code:     "MIN200",
			subtotal: "199.99",
			wantErr:  ErrCouponMinimumNotMet,
		},
		{
			name: "exactly minimum",
			coupon: &Coupon{
				Code: "MIN200", DiscountType: DiscountFixed, Value: dec("5"), Active: true,
				MinPurchase: nullDec("200"),
			},
			code:     "MIN200",
			subtotal: "200.00",
		},
		{
			name: "expiry in the future and uses left",
			coupon: &Coupon{
				Code: "SPRING", DiscountType: DiscountPercentage, Value: dec("10"), Active: true,
				ExpiresAt:  timePtr(fixedNow.Add(time.Hour)),
				UsageLimit: intPtr(10), UsedCount: 9,
			},
			code:     "  spring ",
			subtotal: "50",
		},
		{
			name: "inactive wins over expired",
			coupon: &Coupon{
				Code: "BOTH", DiscountType: DiscountFixed, Value: dec("5"),
				ExpiresAt: timePtr(fixedNow.Add(-time.Hour)),
			},
			code:     "BOTH",
			subtotal: "100",
			wantErr:  ErrCouponInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			if tt.coupon != nil {
				repo = newMockRepo(tt.coupon)
			}
			e := newTestEvaluator(repo)

			c, err := e.Validate(context.Background(), tt.code, dec(tt.subtotal))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.coupon.Code, c.Code)
		})
	}
}

func TestValidate_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = errors.New("connection reset")
	e := newTestEvaluator(repo)

	_, err := e.Validate(context.Background(), "ANY", dec("10"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCouponNotFound)
	assert.Contains(t, err.Error(), "lookup coupon")
}

func TestPreview_DoesNotRecordUsage(t *testing.T) {
	c := &Coupon{
		Code: "WELCOME10", DiscountType: DiscountPercentage, Value: dec("10"), Active: true,
		MinPurchase: nullDec("50"), UsageLimit: intPtr(100),
	}
	repo := newMockRepo(c)
	e := newTestEvaluator(repo)

	for range 2 {
		q, err := e.Preview(context.Background(), "welcome10", dec("80"))
		require.NoError(t, err)
		assert.True(t, dec("8").Equal(q.Amount))
		assert.Equal(t, "WELCOME10", q.Coupon.Code)
	}

	assert.Zero(t, repo.increments["WELCOME10"])
	assert.Zero(t, c.UsedCount)
}

func TestPreview_ClampsFixedToSubtotal(t *testing.T) {
	repo := newMockRepo(&Coupon{Code: "BIG", DiscountType: DiscountFixed, Value: dec("30"), Active: true})
	e := newTestEvaluator(repo)

	q, err := e.Preview(context.Background(), "BIG", dec("12.50"))
	require.NoError(t, err)
	assert.True(t, dec("12.50").Equal(q.Amount))
}

func TestRecordUsage(t *testing.T) {
	c := &Coupon{Code: "ONCE", DiscountType: DiscountFixed, Value: dec("5"), Active: true, UsageLimit: intPtr(1)}
	repo := newMockRepo(c)
	e := newTestEvaluator(repo)

	require.NoError(t, e.RecordUsage(context.Background(), " once"))
	assert.Equal(t, 1, c.UsedCount)

	err := e.RecordUsage(context.Background(), "ONCE")
	require.ErrorIs(t, err, ErrCouponExhausted)
	assert.Equal(t, 1, c.UsedCount)
}

func TestSave(t *testing.T) {
	tests := []struct {
		name    string
		coupon  Coupon
		wantErr string
	}{
		{
			name:    "missing code",
			coupon:  Coupon{DiscountType: DiscountFixed, Value: dec("5")},
			wantErr: "coupon code is required",
		},
		{
			name:    "bad type",
			coupon:  Coupon{Code: "X", DiscountType: "bogo", Value: dec("5")},
			wantErr: "unsupported discount type",
		},
		{
			name:    "zero value",
			coupon:  Coupon{Code: "X", DiscountType: DiscountFixed, Value: decimal.Zero},
			wantErr: "discount value must be positive",
		},
		{
			name:    "percentage over 100",
			coupon:  Coupon{Code: "X", DiscountType: DiscountPercentage, Value: dec("101")},
			wantErr: "percentage discount cannot exceed 100",
		},
		{
			name:   "valid",
			coupon: Coupon{Code: " summer ", DiscountType: DiscountFixed, Value: dec("5"), MaxDiscount: nullDec("3")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			e := newTestEvaluator(repo)

			c := tt.coupon
			err := e.Save(context.Background(), &c)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, repo.upserted)
				return
			}
			require.NoError(t, err)
			require.Len(t, repo.upserted, 1)
			assert.Equal(t, "SUMMER", repo.upserted[0].Code)
			assert.False(t, repo.upserted[0].MaxDiscount.Valid)
			assert.Equal(t, fixedNow, repo.upserted[0].CreatedAt)
		})
	}
}
