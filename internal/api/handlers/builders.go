package handlers

import (
	"net/http"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

// BuilderHandler handles builder-related HTTP requests.
type BuilderHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewBuilderHandler creates a new builder handler.
func NewBuilderHandler(st store.Store, log *logger.Logger) *BuilderHandler {
	return &BuilderHandler{
		store:  st,
		logger: log,
	}
}

// CreateBuilderRequest is the body of POST /api/builders. A missing name falls back
// to models.DefaultBuilderName; an explicit empty name is kept.
type CreateBuilderRequest struct {
	Name        *string        `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// List handles GET /api/builders.
func (h *BuilderHandler) List(w http.ResponseWriter, r *http.Request) {
	builders, err := h.store.Builders().List(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list builders", "error", err)
		WriteInternalError(w, "Failed to list builders")
		return
	}
	if builders == nil {
		builders = []*models.Builder{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"builders": builders})
}

// Create handles POST /api/builders.
func (h *BuilderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBuilderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	name := models.DefaultBuilderName
	if req.Name != nil {
		name = *req.Name
	}

	builder, err := h.store.Builders().Register(r.Context(), name, req.Description, req.Metadata)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to register builder", "error", err, "name", name)
		WriteInternalError(w, "Failed to register builder")
		return
	}

	ctx := logger.ContextWithBuilderID(r.Context(), builder.ID)
	h.logger.WithContext(ctx).Info("builder registered", "name", builder.Name)

	WriteJSON(w, http.StatusOK, map[string]any{"builder": builder})
}
