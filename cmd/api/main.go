// Package main provides the entry point for the API server.
package main

import (
	"context"
	"os"

	"github.com/narvanalabs/builder-dashboard/internal/api"
	"github.com/narvanalabs/builder-dashboard/internal/backend"
	"github.com/narvanalabs/builder-dashboard/internal/shutdown"
	"github.com/narvanalabs/builder-dashboard/internal/store"
	"github.com/narvanalabs/builder-dashboard/internal/store/memory"
	pgstore "github.com/narvanalabs/builder-dashboard/internal/store/postgres"
	"github.com/narvanalabs/builder-dashboard/pkg/config"
	"github.com/narvanalabs/builder-dashboard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.ParseLevel(cfg.Log.Level), cfg.Log.JSONLogs())

	// Initialize store: PostgreSQL when a DSN is configured, memory otherwise
	st, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to open store")
		os.Exit(1)
	}

	if cfg.SeedBuilders {
		if err := st.Builders().Seed(context.Background(), store.DemoBuilders); err != nil {
			log.WithError(err).Error("failed to seed builders")
			os.Exit(1)
		}
	}

	registry := backend.NewRegistry(st.Executions(), log.WithComponent("backend").Logger)

	server, err := api.NewServer(cfg, st, registry, log)
	if err != nil {
		log.WithError(err).Error("failed to create server")
		os.Exit(1)
	}

	// Setup graceful shutdown: the server stops first, then the store closes
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", st))
	coordinator.Register(shutdown.NewFuncComponent("api-server", server.Shutdown))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(context.Background()); err != nil {
			log.WithError(err).Error("server error")
		}
		cancel()
	}()

	coordinator.Run(ctx)
	coordinator.Wait()

	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}

func openStore(cfg *config.Config, log *logger.Logger) (store.Store, error) {
	if cfg.DatabaseDSN == "" {
		log.Info("using in-memory store")
		return memory.New(), nil
	}
	log.Info("using PostgreSQL store")
	pg, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.WithComponent("store").Logger)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
