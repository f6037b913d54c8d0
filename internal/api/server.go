// Package api provides the HTTP API server of the builder dashboard.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/builder-dashboard/internal/api/handlers"
	"github.com/narvanalabs/builder-dashboard/internal/api/health"
	"github.com/narvanalabs/builder-dashboard/internal/api/middleware"
	"github.com/narvanalabs/builder-dashboard/internal/backend"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/pkg/config"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
	"github.com/narvanalabs/builder-dashboard/ui"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	store         store.Store
	registry      *backend.Registry
	pages         *ui.Pages
	config        *config.Config
	logger        *logger.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, registry *backend.Registry, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Default()
	}

	pages, err := ui.NewPages(cfg.Dashboard.Location())
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}

	s := &Server{
		store:    st,
		registry: registry,
		pages:    pages,
		config:   cfg,
		logger:   log,
	}

	s.healthChecker = health.NewChecker(Version)
	s.healthChecker.Register("store", st, true)
	s.healthChecker.Register("backends", registry, false)

	s.setupRouter()
	return s, nil
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger.Logger))
	r.Use(middleware.Recovery(s.logger.Logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", s.healthChecker.Handler())

	builderHandler := handlers.NewBuilderHandler(s.store, s.logger.WithComponent("builders"))
	executionHandler := handlers.NewExecutionHandler(s.store, s.registry, s.logger.WithComponent("executions"))
	activityHandler := handlers.NewActivityHandler(s.store, s.logger.WithComponent("activity"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/builders", builderHandler.List)
		r.Post("/builders", builderHandler.Create)
		r.Post("/execute", executionHandler.Execute)
		r.Get("/status/{executionID}", executionHandler.Status)
		r.Get("/executions", executionHandler.List)
		r.Get("/activity", activityHandler.List)
	})

	pageHandler := handlers.NewPageHandler(s.store, s.registry, s.pages, s.logger.WithComponent("pages"))
	r.Get("/", pageHandler.Index)
	r.Get("/builders", pageHandler.Builders)
	r.Get("/status/{executionID}", pageHandler.Status)
	r.Get("/activity", pageHandler.Activity)

	s.router = r
}

// Start starts the HTTP server and blocks until it stops or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr, "backends", s.registry.Names())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
