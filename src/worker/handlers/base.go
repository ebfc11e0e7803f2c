package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/src/app"
	"ledger/src/utils"
	"ledger/src/worker/controllers"
)

type Handler struct {
	Controller *controllers.Controller
}

func NewHandler(controller *controllers.Controller) *Handler {
	return &Handler{Controller: controller}
}

func (h *Handler) respond(w http.ResponseWriter, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

// HandleErrors logs the failure with the request logger and renders it with
// the status its cause maps to.
func (h *Handler) HandleErrors(w http.ResponseWriter, r *http.Request, err error) {
	utils.LoggerFromContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Warn("worker request failed")

	var httpErr *utils.HTTPError
	err = app.TranslateError(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.respond(w, map[string]string{"error": "Request timed out"}, http.StatusGatewayTimeout)
	case errors.As(err, &httpErr):
		h.respond(w, map[string]string{"error": httpErr.Message}, httpErr.Code)
	default:
		h.respond(w, map[string]string{"error": err.Error()}, http.StatusInternalServerError)
	}
}

// Healthcheck reports liveness and, when the extension task is installed,
// when it runs next.
func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "alive"}
	if next, ok := h.Controller.NextExtension(); ok {
		status["nextExtension"] = next.UTC().Format(time.RFC3339)
	}
	h.respond(w, status, http.StatusOK)
}
