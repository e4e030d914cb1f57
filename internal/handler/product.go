package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range products {
			h.encodeProduct(e, &products[i])
		}
		e.ArrEnd()
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, p) })
}
