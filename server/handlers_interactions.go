package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/legibot/backend/interaction"
	"github.com/legibot/backend/telemetry"
)

const maxInteractionBody = 64 << 10

// HandleInteractions decodes an interaction, dispatches it and writes the response as JSON.
func (h *Handlers) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Router == nil {
		http.Error(w, "interactions disabled", http.StatusServiceUnavailable)
		return
	}

	var req interaction.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInteractionBody))
	if err := dec.Decode(&req); err != nil {
		telemetry.CountInteraction("invalid", "", "bad_request")
		http.Error(w, "invalid interaction payload", http.StatusBadRequest)
		return
	}

	handler := interaction.HandlerName(&req)
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(telemetry.InteractionAttr(handler))
	logger := telemetry.LoggerWithCorr(r.Context()).With(
		slog.String("kind", string(req.Type)),
		slog.String("handler", handler),
		slog.String("component", "interactions"),
	)

	resp, err := h.deps.Router.Dispatch(r.Context(), &req)
	switch {
	case errors.Is(err, interaction.ErrUnknownHandler):
		telemetry.CountInteraction(string(req.Type), handler, "unknown")
		logger.Warn("unknown interaction handler")
		http.Error(w, "unknown interaction", http.StatusNotFound)
		return
	case err != nil:
		telemetry.CountInteraction(string(req.Type), handler, "error")
		telemetry.RecordError(span, err)
		logger.Error("interaction failed", slog.Any("err", err))
		http.Error(w, "interaction failed", http.StatusInternalServerError)
		return
	}

	telemetry.CountInteraction(string(req.Type), handler, "ok")
	logger.Debug("interaction handled")
	writeJSON(w, http.StatusOK, resp)
}
