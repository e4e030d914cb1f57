package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/abhirupbose899-web/orephia/internal/domain/order"
)

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	req, err := decodeCheckout(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.ShippingAddress.FullName == "" || req.ShippingAddress.AddressLine1 == "" {
		writeError(w, r, badRequest("shipping address is required"))
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          s.UserID,
		Email:           s.Email,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponCode,
		PointsToRedeem:  req.PointsToRedeem,
		PaymentStatus:   req.PaymentStatus,
		Payment:         req.Payment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("order", func(e *jx.Encoder) { h.encodeOrder(e, o) })
		e.ObjEnd()
	})
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	orders, err := h.orders.ListForUser(r.Context(), s.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrders(e, orders) })
}

// GetOrder handles GET /api/orders/{id}. Orders of other customers are
// reported as not found.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	o, err := h.orders.GetForUser(r.Context(), s.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeOrder(e, o) })
}
