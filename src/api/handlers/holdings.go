package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	holdings, err := h.Controller.GetHoldings(ctx, chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, holdings, http.StatusOK)
}

func (h *Handler) RecalculateHoldings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	holdings, err := h.Controller.RecalculateHoldings(ctx, chi.URLParam(r, "portfolioID"), r.URL.Query().Get("assetId"))
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, holdings, http.StatusOK)
}
