package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/narvanalabs/builder-dashboard/internal/backend"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

// Execution error messages.
const (
	MsgBuilderIDRequired = "builder_id is required"
	MsgPayloadNotObject  = "payload must be a JSON object"
	MsgExecutionNotFound = "Execution not found"
)

// StartedLogLine is appended to every execution once its backend accepted it.
const StartedLogLine = "Execution started"

// ExecutionHandler handles execution-related HTTP requests.
type ExecutionHandler struct {
	store    store.Store
	registry *backend.Registry
	logger   *logger.Logger
}

// NewExecutionHandler creates a new execution handler.
func NewExecutionHandler(st store.Store, registry *backend.Registry, log *logger.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		store:    st,
		registry: registry,
		logger:   log,
	}
}

// ExecuteRequest is the body of POST /api/execute. A missing backend falls back to
// backend.DefaultName.
type ExecuteRequest struct {
	BuilderID string          `json:"builder_id"`
	Backend   *string         `json:"backend"`
	Payload   json.RawMessage `json:"payload"`
}

// Execute handles POST /api/execute. The execution is created queued by the
// backend registry and moved to running before it is returned.
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}
	if req.BuilderID == "" {
		WriteBadRequest(w, MsgBuilderIDRequired)
		return
	}

	backendName := backend.DefaultName
	if req.Backend != nil {
		backendName = *req.Backend
	}

	payload, err := decodePayload(req.Payload)
	if err != nil {
		WriteBadRequest(w, MsgPayloadNotObject)
		return
	}

	ctx := logger.ContextWithBuilderID(r.Context(), req.BuilderID)
	log := h.logger.WithContext(ctx)

	execution, err := h.registry.TriggerExecution(ctx, backendName, req.BuilderID, payload)
	switch {
	case errors.Is(err, backend.ErrUnknownBackend):
		log.Warn("execution trigger failed", "error", err, "backend", backendName)
		WriteNotFound(w, "Unknown backend: "+backendName)
		return
	case errors.Is(err, store.ErrUnknownBuilder):
		log.Warn("execution trigger failed", "error", err, "backend", backendName)
		WriteNotFound(w, "Unknown builder: "+req.BuilderID)
		return
	case err != nil:
		log.Error("execution trigger failed", "error", err, "backend", backendName)
		WriteInternalError(w, "Failed to trigger execution")
		return
	}

	ctx = logger.ContextWithExecutionID(ctx, execution.ID)
	running, err := h.store.Executions().Update(ctx, execution.ID, store.ExecutionUpdate{
		Status:  models.ExecutionStatusRunning,
		LogLine: StartedLogLine,
	})
	if err != nil {
		h.logger.WithContext(ctx).Error("failed to start execution", "error", err)
		WriteInternalError(w, "Failed to start execution")
		return
	}

	h.logger.WithContext(ctx).Info("execution started", "backend", backendName)
	WriteJSON(w, http.StatusOK, map[string]any{"execution": running})
}

// decodePayload returns the execution payload as an object. A missing or null
// payload is an empty object.
func decodePayload(raw json.RawMessage) (map[string]any, error) {
	payload := map[string]any{}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return payload, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Status handles GET /api/status/{executionID}.
func (h *ExecutionHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	execution, err := h.store.Executions().Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteNotFound(w, MsgExecutionNotFound)
		return
	}
	if err != nil {
		ctx := logger.ContextWithExecutionID(r.Context(), id)
		h.logger.WithContext(ctx).Error("failed to get execution", "error", err)
		WriteInternalError(w, "Failed to get execution")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"execution": execution})
}

// List handles GET /api/executions.
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	executions, err := h.store.Executions().List(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list executions", "error", err)
		WriteInternalError(w, "Failed to list executions")
		return
	}
	if executions == nil {
		executions = []*models.Execution{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"executions": executions})
}
