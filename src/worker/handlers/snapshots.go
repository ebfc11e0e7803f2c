package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ledger/src/schemas"
	"ledger/src/utils"
)

func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req schemas.TriggerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleErrors(w, r, utils.BadRequest("invalid request body: "+err.Error()))
		return
	}
	event, err := req.ToModel()
	if err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	if err := h.Controller.HandleEvent(ctx, event); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, map[string]string{"status": "processed"}, http.StatusAccepted)
}

func (h *Handler) ExtendSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if err := h.Controller.ExtendSnapshots(ctx); err != nil {
		h.HandleErrors(w, r, err)
		return
	}
	h.respond(w, map[string]string{"status": "extended"}, http.StatusOK)
}
