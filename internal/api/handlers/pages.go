package handlers

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/narvanalabs/builder-dashboard/internal/backend"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
	"github.com/narvanalabs/builder-dashboard/ui"
)

// PageHandler serves the HTML pages.
type PageHandler struct {
	store    store.Store
	registry *backend.Registry
	pages    *ui.Pages
	logger   *logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(st store.Store, registry *backend.Registry, pages *ui.Pages, log *logger.Logger) *PageHandler {
	return &PageHandler{
		store:    st,
		registry: registry,
		pages:    pages,
		logger:   log,
	}
}

// Index handles GET /.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	builders, err := h.store.Builders().List(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list builders", err)
		return
	}
	executions, err := h.store.Executions().List(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list executions", err)
		return
	}
	activity, err := h.store.Activity().List(r.Context(), store.DefaultActivityLimit)
	if err != nil {
		h.fail(w, r, "failed to list activity", err)
		return
	}

	h.render(w, r, h.pages.Index(ui.IndexData{
		Builders:   builders,
		Executions: executions,
		Backends:   h.registry.Names(),
		Activity:   activity,
	}))
}

// Builders handles GET /builders.
func (h *PageHandler) Builders(w http.ResponseWriter, r *http.Request) {
	builders, err := h.store.Builders().List(r.Context())
	if err != nil {
		h.fail(w, r, "failed to list builders", err)
		return
	}
	activity, err := h.store.Activity().List(r.Context(), store.DefaultActivityLimit)
	if err != nil {
		h.fail(w, r, "failed to list activity", err)
		return
	}
	h.render(w, r, h.pages.Builders(ui.BuildersData{Builders: builders, Activity: activity}))
}

// Status handles GET /status/{executionID}. Unknown executions redirect to the
// dashboard.
func (h *PageHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")

	execution, err := h.store.Executions().Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		h.fail(w, r, "failed to get execution", err)
		return
	}

	var builder *models.Builder
	if b, err := h.store.Builders().Get(r.Context(), execution.BuilderID); err == nil {
		builder = b
	}

	h.render(w, r, h.pages.Status(ui.StatusData{Execution: execution, Builder: builder}))
}

// Activity handles GET /activity.
func (h *PageHandler) Activity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.store.Activity().List(r.Context(), store.DefaultActivityLimit)
	if err != nil {
		h.fail(w, r, "failed to list activity", err)
		return
	}
	h.render(w, r, h.pages.Activity(ui.ActivityData{Activity: activity}))
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	templ.Handler(c).ServeHTTP(w, r)
}

func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WithContext(r.Context()).WithError(err).Error(msg, "path", r.URL.Path)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
