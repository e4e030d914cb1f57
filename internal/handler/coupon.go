package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

// ValidateCoupon handles POST /api/coupons/validate. The subtotal is
// priced from the catalog and the coupon's usage count is not touched.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var (
		code  string
		lines []order.CartLine
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			v, err := d.Str()
			code = v
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeCartLine(d)
				lines = append(lines, line)
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err == nil && code == "" {
		err = badRequest("coupon code is required")
	}
	if err != nil {
		writeCouponFailure(w, r, err)
		return
	}

	subtotal, _, err := order.ComputeSubtotal(r.Context(), lines, h.catalog)
	if err != nil {
		writeCouponFailure(w, r, err)
		return
	}
	q, err := h.coupons.Preview(r.Context(), code, subtotal)
	if err != nil {
		writeCouponFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("coupon", func(e *jx.Encoder) {
			e.ObjStart()
			e.Field("code", func(e *jx.Encoder) { e.Str(q.Coupon.Code) })
			e.Field("discountType", func(e *jx.Encoder) { e.Str(string(q.Coupon.DiscountType)) })
			e.Field("discountValue", func(e *jx.Encoder) { encodeDecimal(e, q.Coupon.Value) })
			e.Field("discountAmount", func(e *jx.Encoder) { encodeDecimal(e, q.Amount) })
			e.ObjEnd()
		})
		e.Field("message", func(e *jx.Encoder) { e.Str("coupon applied") })
		e.ObjEnd()
	})
}

func writeCouponFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.ObjEnd()
	})
}
