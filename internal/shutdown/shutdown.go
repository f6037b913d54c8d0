// Package shutdown coordinates graceful shutdown of the API server and the
// dashboard client. Components are stopped one at a time in reverse registration
// order once a signal arrives or the run context ends.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 30 * time.Second

// Component represents a component that can be gracefully shut down.
type Component interface {
	// Name returns the component name for logging.
	Name() string
	// Shutdown gracefully shuts down the component.
	// It should return within the given context deadline.
	Shutdown(ctx context.Context) error
}

// Coordinator manages graceful shutdown of multiple components.
type Coordinator struct {
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.Mutex

	// signalCh replaces the OS signal channel in tests.
	signalCh chan os.Signal

	shutdownOnce sync.Once
	shutdownDone chan struct{}
	exitCode     int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithSignalChannel sets a custom signal channel (for testing).
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
		shutdownDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register adds a component to be shut down during graceful shutdown.
// Components are shut down in reverse order of registration (LIFO).
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
	c.logger.Debug("registered shutdown component", "name", component.Name())
}

// Run blocks until SIGINT or SIGTERM is received or ctx is done, then shuts
// every component down.
func (c *Coordinator) Run(ctx context.Context) {
	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		c.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	c.Shutdown()
}

// Shutdown stops the registered components, last registered first. Each
// component gets whatever remains of the shared timeout; once it is spent the
// remaining components are skipped and the exit code becomes 1.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		defer close(c.shutdownDone)

		c.logger.Info("initiating graceful shutdown", "timeout", c.timeout.String())

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		c.mu.Lock()
		components := make([]Component, len(c.components))
		copy(components, c.components)
		c.mu.Unlock()

		for i := len(components) - 1; i >= 0; i-- {
			comp := components[i]
			if ctx.Err() != nil {
				c.logger.Warn("shutdown timeout exceeded, skipping component", "name", comp.Name())
				c.exitCode = 1
				continue
			}
			if err := c.stop(ctx, comp); err != nil {
				c.logger.Error("component shutdown error", "name", comp.Name(), "error", err)
				if ctx.Err() != nil {
					c.exitCode = 1
				}
				continue
			}
			c.logger.Info("component shutdown complete", "name", comp.Name())
		}

		if c.exitCode == 0 {
			c.logger.Info("all components shut down")
		}
	})
}

// stop runs comp.Shutdown but returns as soon as ctx expires, even if the
// component ignores its context.
func (c *Coordinator) stop(ctx context.Context, comp Component) error {
	c.logger.Info("shutting down component", "name", comp.Name())

	errCh := make(chan error, 1)
	go func() { errCh <- comp.Shutdown(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until shutdown is complete.
func (c *Coordinator) Wait() {
	<-c.shutdownDone
}

// ExitCode returns 0 after a clean shutdown and 1 when the timeout cut it short.
// It must be read after Wait returns.
func (c *Coordinator) ExitCode() int {
	return c.exitCode
}
