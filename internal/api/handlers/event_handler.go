package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/uptask-be/internal/services"
)

// EventHandler handles HTTP requests for a project's activity feed.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the recent activity of a project.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = services.DefaultActivityLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), scope(r).project.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
