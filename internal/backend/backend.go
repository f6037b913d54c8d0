// Package backend provides the execution backends a builder can be run on and the
// registry that dispatches executions to them.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// DefaultName is the backend used when a request does not name one.
const DefaultName = "codex"

// ErrUnknownBackend is returned when no backend is registered under a name.
var ErrUnknownBackend = errors.New("unknown backend")

// Backend submits builder payloads to an execution system.
type Backend interface {
	// Name returns the registry key of the backend.
	Name() string
	// Warmup prepares the backend before a submission.
	Warmup(ctx context.Context) error
	// Trigger submits a job and returns metadata recorded on the execution.
	Trigger(ctx context.Context, builderID string, payload map[string]any) (map[string]any, error)
}

// placeholder accepts every submission without running anything. Codex and AgentKit
// are both served by it until their real clients land.
type placeholder struct {
	name   string
	logger *slog.Logger
}

func (p *placeholder) Name() string { return p.name }

func (p *placeholder) Warmup(ctx context.Context) error {
	p.logger.Debug("backend warmup complete", "backend", p.name)
	return nil
}

func (p *placeholder) Trigger(ctx context.Context, builderID string, payload map[string]any) (map[string]any, error) {
	p.logger.Info("triggering execution", "backend", p.name, "builder_id", builderID, "payload_keys", len(payload))
	return map[string]any{"backend": p.name, "accepted": true}, nil
}

// NewCodex returns the Codex backend.
func NewCodex(logger *slog.Logger) Backend {
	return &placeholder{name: "codex", logger: logger}
}

// NewAgentKit returns the AgentKit backend.
func NewAgentKit(logger *slog.Logger) Backend {
	return &placeholder{name: "agentkit", logger: logger}
}

// Registry maps backend names to backends and records executions in the store.
type Registry struct {
	executions store.ExecutionStore
	backends   map[string]Backend
	logger     *slog.Logger
}

// NewRegistry creates a registry with the given backends. With none given, Codex
// and AgentKit are registered.
func NewRegistry(executions store.ExecutionStore, logger *slog.Logger, backends ...Backend) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if len(backends) == 0 {
		backends = []Backend{NewCodex(logger), NewAgentKit(logger)}
	}
	r := &Registry{
		executions: executions,
		backends:   make(map[string]Backend, len(backends)),
		logger:     logger,
	}
	for _, b := range backends {
		r.backends[b.Name()] = b
	}
	return r
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TriggerExecution warms up the named backend, submits the payload and records a
// queued execution carrying the backend's metadata.
func (r *Registry) TriggerExecution(ctx context.Context, backendName, builderID string, payload map[string]any) (*models.Execution, error) {
	b, ok := r.Get(backendName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backendName)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if err := b.Warmup(ctx); err != nil {
		return nil, fmt.Errorf("warming up backend %s: %w", backendName, err)
	}
	meta, err := b.Trigger(ctx, builderID, payload)
	if err != nil {
		return nil, fmt.Errorf("triggering backend %s: %w", backendName, err)
	}

	metadata := map[string]any{"backend": backendName}
	for k, v := range meta {
		metadata[k] = v
	}
	execution, err := r.executions.Create(ctx, builderID, metadata)
	if err != nil {
		return nil, err
	}
	r.logger.Info("execution created", "execution_id", execution.ID, "backend", backendName)
	return execution, nil
}

// Ping warms up every registered backend. It lets the health checker report on
// the registry.
func (r *Registry) Ping(ctx context.Context) error {
	for _, name := range r.Names() {
		if err := r.backends[name].Warmup(ctx); err != nil {
			return fmt.Errorf("backend %s: %w", name, err)
		}
	}
	return nil
}
