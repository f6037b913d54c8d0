package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStarted is returned when Start is called on a page that is already running.
var ErrStarted = errors.New("dashboard page already started")

// Intervals are the poll periods of the three pollers.
type Intervals struct {
	Activity   time.Duration
	Executions time.Duration
	Status     time.Duration
}

// DefaultIntervals returns the standard poll periods.
func DefaultIntervals() Intervals {
	return Intervals{
		Activity:   5 * time.Second,
		Executions: 7 * time.Second,
		Status:     5 * time.Second,
	}
}

// Option configures a Page.
type Option func(*Page)

// WithIntervals overrides the poll periods. Non-positive values keep the default.
func WithIntervals(in Intervals) Option {
	return func(p *Page) {
		if in.Activity > 0 {
			p.intervals.Activity = in.Activity
		}
		if in.Executions > 0 {
			p.intervals.Executions = in.Executions
		}
		if in.Status > 0 {
			p.intervals.Status = in.Status
		}
	}
}

// WithLocation sets the time zone of activity timestamps.
func WithLocation(loc *time.Location) Option {
	return func(p *Page) {
		p.loc = loc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// Page owns the pollers, the form controllers and the poll timers of one
// dashboard page.
type Page struct {
	doc       Document
	api       API
	intervals Intervals
	loc       *time.Location
	logger    *slog.Logger

	Activity    *ActivityPoller
	Executions  *ExecutionsPoller
	Status      *StatusPoller
	ExecuteForm *ExecuteForm
	BuilderForm *BuilderForm

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPage creates a page bound to doc and backed by client.
func NewPage(doc Document, client API, opts ...Option) *Page {
	p := &Page{
		doc:       doc,
		api:       client,
		intervals: DefaultIntervals(),
		loc:       time.Local,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.Activity = &ActivityPoller{doc: doc, api: client, loc: p.loc, logger: p.logger}
	p.Executions = &ExecutionsPoller{doc: doc, api: client, logger: p.logger}
	p.Status = &StatusPoller{doc: doc, api: client, logger: p.logger}
	p.ExecuteForm = &ExecuteForm{
		doc:     doc,
		api:     client,
		refresh: []Poller{p.Executions, p.Activity},
		logger:  p.logger,
	}
	p.BuilderForm = &BuilderForm{
		doc:     doc,
		api:     client,
		refresh: []Poller{p.Activity},
		logger:  p.logger,
	}
	return p
}

// Wire binds the form controllers to their buttons. Forms whose button is absent
// are skipped.
func (p *Page) Wire() {
	if p.ExecuteForm.Bind() {
		p.logger.Debug("execute form bound")
	}
	if p.BuilderForm.Bind() {
		p.logger.Debug("builder form bound")
	}
}

// Refresh runs every poller once, in order.
func (p *Page) Refresh(ctx context.Context) {
	p.Activity.Poll(ctx)
	p.Executions.Poll(ctx)
	p.Status.Poll(ctx)
}

// Start wires the forms, refreshes every view once and then polls each view on its
// own interval until ctx is cancelled or Close is called. Each tick polls in its
// own goroutine, so a slow request does not delay the next tick.
func (p *Page) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrStarted
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.Wire()
	p.Refresh(ctx)

	p.schedule(ctx, p.intervals.Activity, p.Activity)
	p.schedule(ctx, p.intervals.Executions, p.Executions)
	p.schedule(ctx, p.intervals.Status, p.Status)

	p.logger.Info("dashboard page started",
		"activity_interval", p.intervals.Activity.String(),
		"executions_interval", p.intervals.Executions.String(),
		"status_interval", p.intervals.Status.String(),
	)
	return nil
}

func (p *Page) schedule(ctx context.Context, every time.Duration, poller Poller) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.wg.Add(1)
				go func() {
					defer p.wg.Done()
					poller.Poll(ctx)
				}()
			}
		}
	}()
}

// Close stops the timers, cancels in-flight polls and waits for them to return.
func (p *Page) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}
