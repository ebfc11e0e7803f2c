package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ledger/src/schemas"
	"ledger/src/utils"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	query := r.URL.Query()
	endDate := utils.Today()
	startDate := endDate.AddDate(-1, 0, 0)
	var err error
	if v := query.Get("startDate"); v != "" {
		if startDate, err = utils.ParseDay(v); err != nil {
			h.HandleErrors(w, r, err)
			return
		}
	}
	if v := query.Get("endDate"); v != "" {
		if endDate, err = utils.ParseDay(v); err != nil {
			h.HandleErrors(w, r, err)
			return
		}
	}
	aggregate := false
	if v := query.Get("aggregate"); v != "" {
		if aggregate, err = strconv.ParseBool(v); err != nil {
			h.HandleErrors(w, r, utils.BadRequest("aggregate must be a boolean"))
			return
		}
	}

	snapshots, err := h.Controller.GetSnapshots(ctx, chi.URLParam(r, "portfolioID"), startDate, endDate, aggregate)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, snapshots, http.StatusOK)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	snapshot, err := h.Controller.GetLatestSnapshot(ctx, chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, snapshot, http.StatusOK)
}

func (h *Handler) ComputeSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	var req schemas.ComputeSnapshotsRequest
	if err := decodeBody(r, &req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	res, err := h.Controller.ComputeSnapshots(ctx, chi.URLParam(r, "portfolioID"), req)
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, res, http.StatusOK)
}

func (h *Handler) RecomputeSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	res, err := h.Controller.RecomputeSnapshots(ctx, chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, res, http.StatusOK)
}

func (h *Handler) DeleteSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	if err := h.Controller.DeleteSnapshots(ctx, chi.URLParam(r, "portfolioID")); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, nil, http.StatusNoContent)
}

func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), computeTimeout)
	defer cancel()

	var req schemas.TriggerEventRequest
	if err := decodeBody(r, &req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	if err := h.Controller.HandleEvent(ctx, req); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, r, map[string]string{"status": "processed", "at": time.Now().UTC().Format(time.RFC3339)}, http.StatusAccepted)
}
