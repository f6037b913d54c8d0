package handlers

import (
	"net/http"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

// ActivityHandler serves the activity log.
type ActivityHandler struct {
	store  store.Store
	limit  int
	logger *logger.Logger
}

// NewActivityHandler creates a new activity handler returning the
// store.DefaultActivityLimit most recent items.
func NewActivityHandler(st store.Store, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{
		store:  st,
		limit:  store.DefaultActivityLimit,
		logger: log,
	}
}

// List handles GET /api/activity. Items are oldest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.Activity().List(r.Context(), h.limit)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list activity", "error", err)
		WriteInternalError(w, "Failed to list activity")
		return
	}
	if items == nil {
		items = []models.ActivityItem{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"activity": items})
}
