package handlers

import (
	"context"
	"net/http"

	"ledger/src/schemas"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	var req schemas.TransactionRequest
	if err := decodeBody(r, &req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	tx, err := h.Controller.AddTransaction(ctx, chi.URLParam(r, "portfolioID"), req)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, tx, http.StatusCreated)
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	txs, err := h.Controller.GetTransactions(ctx, chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, txs, http.StatusOK)
}

func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	var req schemas.PriceRequest
	if err := decodeBody(r, &req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	if err := h.Controller.SetPrice(ctx, chi.URLParam(r, "assetID"), req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, nil, http.StatusNoContent)
}
