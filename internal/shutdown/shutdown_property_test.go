package shutdown

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// recorder collects component shutdown order.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) component(name string, delay time.Duration, fail bool) Component {
	return NewFuncComponent(name, func(ctx context.Context) error {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		if fail {
			return errors.New("shutdown failed")
		}
		return nil
	})
}

// TestPropertyLIFOOrder verifies components stop in reverse registration order.
func TestPropertyLIFOOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("components shut down last registered first", prop.ForAll(
		func(names []string) bool {
			rec := &recorder{}
			c := NewCoordinator(WithTimeout(time.Second))
			for _, n := range names {
				c.Register(rec.component(n, 0, false))
			}
			c.Shutdown()
			c.Wait()

			if len(rec.order) != len(names) || c.ExitCode() != 0 {
				return false
			}
			for i, n := range rec.order {
				if n != names[len(names)-1-i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.Identifier()),
	))

	properties.TestingRun(t)
}

// TestPropertyExitCodeBehavior verifies the exit code for clean and forced shutdowns.
func TestPropertyExitCodeBehavior(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("exit code is 0 for clean shutdown", prop.ForAll(
		func(timeout int64) bool {
			d := time.Duration(timeout) * time.Millisecond
			rec := &recorder{}
			c := NewCoordinator(WithTimeout(d))
			c.Register(rec.component("fast", d/4, false))
			c.Shutdown()
			c.Wait()
			return c.ExitCode() == 0
		},
		gen.Int64Range(100, 300),
	))

	properties.Property("exit code is 1 for forced termination", prop.ForAll(
		func(timeout int64) bool {
			d := time.Duration(timeout) * time.Millisecond
			rec := &recorder{}
			c := NewCoordinator(WithTimeout(d))
			c.Register(rec.component("never-reached", 0, false))
			c.Register(rec.component("slow", d*3, false))
			c.Shutdown()
			c.Wait()
			// The slow component overran the timeout, so the first one was skipped.
			return c.ExitCode() == 1 && len(rec.order) == 0
		},
		gen.Int64Range(20, 80),
	))

	properties.TestingRun(t)
}

func TestFailingComponentDoesNotStopOthers(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(WithTimeout(time.Second))
	c.Register(rec.component("store", 0, false))
	c.Register(rec.component("server", 0, true))
	c.Shutdown()
	c.Wait()

	if len(rec.order) != 2 || rec.order[1] != "store" {
		t.Errorf("unexpected order %v", rec.order)
	}
	if c.ExitCode() != 0 {
		t.Errorf("a component error within the timeout is not a forced termination")
	}
}

func TestRunOnSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	rec := &recorder{}
	c := NewCoordinator(WithSignalChannel(sigCh))
	c.Register(rec.component("server", 0, false))

	go c.Run(context.Background())
	sigCh <- syscall.SIGTERM

	select {
	case <-c.shutdownDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if len(rec.order) != 1 {
		t.Errorf("component was not shut down")
	}
}

func TestRunOnContextDone(t *testing.T) {
	c := NewCoordinator(WithSignalChannel(make(chan os.Signal)))
	closed := false
	c.Register(NewCloserComponent("store", closerFunc(func() error { closed = true; return nil })))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)
	c.Wait()

	if !closed {
		t.Errorf("closer was not called")
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
