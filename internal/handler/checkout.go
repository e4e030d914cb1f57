package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
	"github.com/abhirupbose899-web/orephia/internal/payment"
)

// checkoutRequest is the body shared by quote, charge and order placement.
// Client-side prices in items are ignored. pointsToRedeem is accepted as an
// alias of pointsRedeemed, and paymentReference fills the payment id of the
// proof.
type checkoutRequest struct {
	Items           []order.CartLine
	CouponCode      string
	PointsToRedeem  int64
	ShippingAddress order.Address
	PaymentStatus   order.PaymentStatus
	Payment         *order.PaymentProof
}

func decodeCartLine(d *jx.Decoder) (order.CartLine, error) {
	var line order.CartLine
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			line.ProductID, err = d.Str()
		case "quantity":
			line.Quantity, err = d.Int()
		case "size":
			line.Size, err = decodeOptionalStr(d)
		case "color":
			line.Color, err = decodeOptionalStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return line, err
}

func decodeAddress(d *jx.Decoder) (order.Address, error) {
	var a order.Address
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "fullName":
			dst = &a.FullName
		case "addressLine1":
			dst = &a.AddressLine1
		case "addressLine2":
			dst = &a.AddressLine2
		case "city":
			dst = &a.City
		case "state":
			dst = &a.State
		case "postalCode":
			dst = &a.PostalCode
		case "country":
			dst = &a.Country
		case "phone":
			dst = &a.Phone
		default:
			return d.Skip()
		}
		v, err := decodeOptionalStr(d)
		*dst = v
		return err
	})
	return a, err
}

func decodePaymentProof(d *jx.Decoder) (*order.PaymentProof, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var p order.PaymentProof
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "chargeId":
			p.ChargeID, err = d.Str()
		case "paymentId":
			p.PaymentID, err = d.Str()
		case "signature":
			p.Signature, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return &p, err
}

func decodeCheckout(r *http.Request) (*checkoutRequest, error) {
	var (
		req       = &checkoutRequest{}
		reference string
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				line, err := decodeCartLine(d)
				req.Items = append(req.Items, line)
				return err
			})
		case "couponCode":
			req.CouponCode, err = decodeOptionalStr(d)
		case "pointsRedeemed", "pointsToRedeem":
			if d.Next() == jx.Null {
				return d.Null()
			}
			req.PointsToRedeem, err = d.Int64()
		case "shippingAddress":
			req.ShippingAddress, err = decodeAddress(d)
		case "paymentStatus":
			var s string
			s, err = decodeOptionalStr(d)
			req.PaymentStatus = order.PaymentStatus(strings.ToLower(s))
		case "payment":
			req.Payment, err = decodePaymentProof(d)
		case "paymentReference":
			reference, err = decodeOptionalStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if reference != "" {
		if req.Payment == nil {
			req.Payment = &order.PaymentProof{}
		}
		if req.Payment.PaymentID == "" {
			req.Payment.PaymentID = reference
		}
	}
	return req, nil
}

func (req *checkoutRequest) quoteRequest(userID string) order.QuoteRequest {
	return order.QuoteRequest{
		UserID:         userID,
		Items:          req.Items,
		CouponCode:     req.CouponCode,
		PointsToRedeem: req.PointsToRedeem,
	}
}

// QuoteCheckout handles POST /api/checkout/quote. It has no side effects.
func (h *Handler) QuoteCheckout(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	req, err := decodeCheckout(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.orders.Quote(r.Context(), req.quoteRequest(s.UserID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeQuote(e, q) })
}

// CreateCharge handles POST /api/payments/charge. The amount is the server
// quote converted to minor units, never a client figure.
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	if h.charges == nil {
		writeMessage(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	s, _ := SessionFromContext(r.Context())
	req, err := decodeCheckout(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.orders.Quote(r.Context(), req.quoteRequest(s.UserID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := payment.ToMinorUnits(q.Total, q.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ch, err := h.charges.CreateCharge(r.Context(), payment.ChargeRequest{
		Amount:         amount,
		Currency:       q.Currency,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Metadata: map[string]string{
			"user_id": s.UserID,
			"total":   q.Total.StringFixed(2),
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("chargeId", func(e *jx.Encoder) { e.Str(ch.ID) })
		e.Field("amount", func(e *jx.Encoder) { e.Int64(ch.Amount) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(ch.Currency) })
		e.Field("clientSecret", func(e *jx.Encoder) { e.Str(ch.ClientSecret) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, q.Total) })
		e.ObjEnd()
	})
}
