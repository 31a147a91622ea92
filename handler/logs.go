package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commercekit/paybridge/infra/opensearch"
	"github.com/commercekit/paybridge/infra/response"
)

// LogsHandler serves the indexed callback events for auditing
type LogsHandler struct {
	events *opensearch.Logger
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(events *opensearch.Logger) *LogsHandler {
	return &LogsHandler{events: events}
}

// GetOrderEvents returns the indexed callback events for one order
func (h *LogsHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if h.events == nil {
		response.Error(w, http.StatusServiceUnavailable, "Event indexing is not enabled", nil)
		return
	}

	gatewayName := chi.URLParam(r, "gateway")
	orderID := chi.URLParam(r, "orderID")

	events, err := h.events.GetOrderEvents(ctx, gatewayName, orderID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search events", err)
		return
	}

	response.Success(w, http.StatusOK, "Events retrieved", map[string]any{
		"gateway": gatewayName,
		"orderId": orderID,
		"count":   len(events),
		"events":  events,
	})
}

// GetMismatches returns recent flagged reconciliation mismatches
func (h *LogsHandler) GetMismatches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if h.events == nil {
		response.Error(w, http.StatusServiceUnavailable, "Event indexing is not enabled", nil)
		return
	}

	gatewayName := chi.URLParam(r, "gateway")

	hours, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	mismatches, err := h.events.GetRecentMismatches(ctx, gatewayName, hours)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search mismatches", err)
		return
	}

	response.Success(w, http.StatusOK, "Mismatches retrieved", map[string]any{
		"gateway":    gatewayName,
		"hours":      hours,
		"count":      len(mismatches),
		"mismatches": mismatches,
	})
}
