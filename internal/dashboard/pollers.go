package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/web/api"
)

// API is the backend surface the page consumes. *api.Client implements it.
type API interface {
	ListActivity(ctx context.Context) ([]models.ActivityItem, error)
	ListExecutions(ctx context.Context) ([]models.Execution, error)
	GetStatus(ctx context.Context, id string) (*models.Execution, error)
	Execute(ctx context.Context, req api.ExecuteRequest) (*models.Execution, error)
	RegisterBuilder(ctx context.Context, req api.RegisterBuilderRequest) (*models.Builder, error)
}

// Poller fetches one view from the backend and re-renders it.
type Poller interface {
	Poll(ctx context.Context)
}

// logFetchFailure records a swallowed read-path error. Rejected responses are
// expected while the backend restarts and only show up at debug level.
func logFetchFailure(logger *slog.Logger, what string, err error) {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		logger.Debug("fetch rejected", "view", what, "status", statusErr.StatusCode)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Warn("failed to fetch "+what, "error", err)
}

// ActivityPoller renders the activity feed.
type ActivityPoller struct {
	doc    Document
	api    API
	loc    *time.Location
	logger *slog.Logger
}

// Poll refreshes #activity-feed. Failures leave the previous render in place.
func (p *ActivityPoller) Poll(ctx context.Context) {
	feed := p.doc.Query(SelActivityFeed)
	if feed == nil {
		return
	}
	items, err := p.api.ListActivity(ctx)
	if err != nil {
		logFetchFailure(p.logger, "activity", err)
		return
	}
	feed.RenderLines(ActivityLines(items, p.loc))
}

// ExecutionsPoller renders the executions table.
type ExecutionsPoller struct {
	doc    Document
	api    API
	logger *slog.Logger
}

// Poll refreshes #executions-table. Failures leave the previous render in place.
func (p *ExecutionsPoller) Poll(ctx context.Context) {
	table := p.doc.Query(SelExecutionsTable)
	if table == nil {
		return
	}
	executions, err := p.api.ListExecutions(ctx)
	if err != nil {
		logFetchFailure(p.logger, "executions", err)
		return
	}
	table.RenderRows(ExecutionRows(executions))
}

// StatusPoller renders the single-execution status panel.
type StatusPoller struct {
	doc    Document
	api    API
	logger *slog.Logger
}

// Poll refreshes the status panel when the page carries an execution id.
func (p *StatusPoller) Poll(ctx context.Context) {
	box := p.doc.Query(SelExecutionID)
	if box == nil {
		return
	}
	id := box.Attr(AttrExecutionID)
	execution, err := p.api.GetStatus(ctx, id)
	if err != nil {
		logFetchFailure(p.logger.With("execution_id", id), "execution status", err)
		return
	}
	if el := p.doc.Query(SelStatusLabel); el != nil {
		el.SetText(string(execution.Status))
	}
	if el := p.doc.Query(SelStatusUpdated); el != nil {
		el.SetText(FormatRawNumber(execution.UpdatedAt))
	}
	if el := p.doc.Query(SelStatusLogs); el != nil {
		el.SetText(JoinLogs(execution.Logs))
	}
}
