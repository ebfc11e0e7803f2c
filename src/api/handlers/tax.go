package handlers

import (
	"context"
	"net/http"

	"ledger/src/schemas"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) EstimateTax(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	var req schemas.TaxEstimateRequest
	if err := decodeBody(r, &req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	estimate, err := h.Controller.EstimateTax(ctx, chi.URLParam(r, "portfolioID"), req)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, estimate, http.StatusOK)
}
