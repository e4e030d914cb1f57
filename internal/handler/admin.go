package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/abhirupbose899-web/orephia/internal/domain/coupon"
	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

// AdminListOrders handles GET /api/admin/orders.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrders(e, orders) })
}

// AdminUpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var raw string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		raw = v
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := order.ParseStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// AdminSettlePayment handles POST /api/admin/orders/{id}/payment, the hook
// that marks a pending order paid once the gateway confirms it.
func (h *Handler) AdminSettlePayment(w http.ResponseWriter, r *http.Request) {
	var paymentID string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "paymentId" {
			return d.Skip()
		}
		v, err := d.Str()
		paymentID = v
		return err
	})
	if err == nil && paymentID == "" {
		err = badRequest("paymentId is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.SettlePayment(r.Context(), chi.URLParam(r, "id"), paymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}

// AdminListCoupons handles GET /api/admin/coupons.
func (h *Handler) AdminListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range coupons {
			encodeCoupon(e, &coupons[i])
		}
		e.ArrEnd()
	})
}

func decodeNullDecimal(d *jx.Decoder) (decimal.NullDecimal, error) {
	if d.Next() == jx.Null {
		return decimal.NullDecimal{}, d.Null()
	}
	v, err := decodeDecimal(d)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

// AdminSaveCoupon handles POST /api/admin/coupons. Coupons are upserted by
// code; the usage count is preserved.
func (h *Handler) AdminSaveCoupon(w http.ResponseWriter, r *http.Request) {
	c := coupon.Coupon{Active: true}
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "discountType":
			var v string
			v, err = d.Str()
			c.DiscountType = coupon.DiscountType(v)
		case "discountValue":
			c.Value, err = decodeDecimal(d)
		case "description":
			c.Description, err = decodeOptionalStr(d)
		case "minPurchase":
			c.MinPurchase, err = decodeNullDecimal(d)
		case "maxDiscount":
			c.MaxDiscount, err = decodeNullDecimal(d)
		case "usageLimit":
			if d.Next() == jx.Null {
				return d.Null()
			}
			var n int
			n, err = d.Int()
			c.UsageLimit = &n
		case "expiresAt":
			var v string
			if v, err = decodeOptionalStr(d); err != nil || v == "" {
				return err
			}
			t, perr := time.Parse(time.RFC3339, v)
			if perr != nil {
				return badRequest("expiresAt must be RFC 3339")
			}
			c.ExpiresAt = &t
		case "active":
			c.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.coupons.Save(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCoupon(e, &c) })
}
