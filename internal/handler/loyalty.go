package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// LoyaltyBalance handles GET /api/loyalty/balance.
func (h *Handler) LoyaltyBalance(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	points, err := h.loyalty.Balance(r.Context(), s.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("points", func(e *jx.Encoder) { e.Int64(points) })
		e.ObjEnd()
	})
}

// LoyaltyTransactions handles GET /api/loyalty/transactions.
func (h *Handler) LoyaltyTransactions(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	txs, err := h.loyalty.Transactions(r.Context(), s.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range txs {
			encodeTransaction(e, &txs[i])
		}
		e.ArrEnd()
	})
}
