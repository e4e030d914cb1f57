package email

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

func TestClient_Send(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = map[string]any{}
		require.NoError(t, jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
			v, err := d.Raw()
			gotBody[string(key)] = v.String()
			return err
		}))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "re_key", "Orephia <orders@orephia.test>", srv.Client())
	id, err := c.Send(context.Background(), Message{
		To:      []string{"ada@example.com"},
		Subject: "Hello",
		HTML:    "<p>Hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)
	assert.Equal(t, "Bearer re_key", gotAuth)
	assert.Equal(t, `"Orephia <orders@orephia.test>"`, gotBody["from"])
	assert.Equal(t, `["ada@example.com"]`, gotBody["to"])
	assert.Equal(t, `"Hello"`, gotBody["subject"])
}

func TestClient_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"The 'from' field is required."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "re_key", "", srv.Client())
	_, err := c.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Name)
}

func TestClient_NoRecipients(t *testing.T) {
	c := NewClient("http://localhost", "k", "f", http.DefaultClient)
	_, err := c.Send(context.Background(), Message{Subject: "x"})
	require.Error(t, err)
}

type recordingSender struct {
	messages []Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, m Message) (string, error) {
	s.messages = append(s.messages, m)
	return "em_1", s.err
}

func testOrder() *order.Order {
	return &order.Order{
		ID:       "order-1",
		Currency: "USD",
		Status:   order.StatusProcessing,
		Items: []order.Item{
			{Title: `<script>alert(1)</script>Linen Tee`, Quantity: 2, Size: "M", Color: "sand", UnitPrice: decimal.RequireFromString("40")},
		},
		Subtotal:       decimal.RequireFromString("80"),
		Discount:       decimal.RequireFromString("8"),
		CouponCode:     "WELCOME10",
		PointsDiscount: decimal.Zero,
		Shipping:       decimal.RequireFromString("10"),
		Tax:            decimal.RequireFromString("5.76"),
		Total:          decimal.RequireFromString("87.76"),
		ShippingAddress: order.Address{
			FullName: "Ada Lovelace", AddressLine1: "1 Main St", City: "London", PostalCode: "N1", Country: "UK",
		},
	}
}

func TestNotifier_Render(t *testing.T) {
	n := NewNotifier(&recordingSender{})

	html, err := n.Render(testOrder())
	require.NoError(t, err)
	assert.Contains(t, html, "order-1")
	assert.Contains(t, html, "87.76")
	assert.Contains(t, html, "WELCOME10")
	assert.Contains(t, html, "M, sand")
	assert.Contains(t, html, "Ada Lovelace")
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "Points (")
}

func TestNotifier_OrderPlaced(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender)

	require.NoError(t, n.OrderPlaced(context.Background(), "ada@example.com", testOrder()))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, []string{"ada@example.com"}, sender.messages[0].To)
	assert.Contains(t, sender.messages[0].Subject, "order-1")

	sender.err = errors.New("rate limited")
	err := n.OrderPlaced(context.Background(), "ada@example.com", testOrder())
	require.Error(t, err)
}

func TestNotifier_BadCurrency(t *testing.T) {
	o := testOrder()
	o.Currency = "???"
	_, err := NewNotifier(&recordingSender{}).Render(o)
	require.Error(t, err)
}
