// Package store provides persistence interfaces for builders, executions and the
// activity log, with in-memory and PostgreSQL implementations.
package store

import (
	"context"
	"errors"

	"github.com/narvanalabs/builder-dashboard/internal/models"
)

// DefaultActivityLimit is the number of most recent activity items returned by List.
const DefaultActivityLimit = 50

// Common store errors.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnknownBuilder is returned when an execution references a missing builder.
	ErrUnknownBuilder = errors.New("unknown builder")
)

// DemoBuilder describes a builder seeded into an empty store.
type DemoBuilder struct {
	Name        string
	Description string
}

// DemoBuilders are registered by SeedBuilders when no builder exists yet.
var DemoBuilders = []DemoBuilder{
	{Name: "Summarizer", Description: "Generate summaries of documents using Codex/AgentKit"},
	{Name: "Sentiment Analyzer", Description: "Classify sentiment for customer feedback"},
}

// BuilderStore defines operations for builder management.
type BuilderStore interface {
	// Register creates a builder and records a builder_registered activity item.
	Register(ctx context.Context, name, description string, metadata map[string]any) (*models.Builder, error)
	// Get retrieves a builder by ID.
	Get(ctx context.Context, id string) (*models.Builder, error)
	// List retrieves all builders in creation order.
	List(ctx context.Context) ([]*models.Builder, error)
	// Seed registers the demo builders without activity items if none exist.
	Seed(ctx context.Context, demos []DemoBuilder) error
}

// ExecutionUpdate carries the optional changes applied by ExecutionStore.Update.
// Zero values leave the corresponding field untouched.
type ExecutionUpdate struct {
	Status   models.ExecutionStatus
	LogLine  string
	Metadata map[string]any
}

// ExecutionStore defines operations for execution tracking.
type ExecutionStore interface {
	// Create creates a queued execution for an existing builder and records an
	// execution_created activity item. It returns ErrUnknownBuilder when the
	// builder does not exist.
	Create(ctx context.Context, builderID string, metadata map[string]any) (*models.Execution, error)
	// Get retrieves an execution by ID.
	Get(ctx context.Context, id string) (*models.Execution, error)
	// List retrieves all executions.
	List(ctx context.Context) ([]*models.Execution, error)
	// Update applies u, bumps updated_at, and records a log activity item when a
	// log line is appended.
	Update(ctx context.Context, id string, u ExecutionUpdate) (*models.Execution, error)
}

// ActivityStore defines read access to the activity log.
type ActivityStore interface {
	// List returns up to limit most recent items, oldest first.
	List(ctx context.Context, limit int) ([]models.ActivityItem, error)
}

// Store is the main interface for persistence.
type Store interface {
	Builders() BuilderStore
	Executions() ExecutionStore
	Activity() ActivityStore

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the store's resources.
	Close() error
}
