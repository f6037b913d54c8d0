// Package dashboard implements the dashboard page: three pollers that keep the
// activity feed, the executions table and the status panel current, and two form
// controllers that trigger executions and register builders.
//
// The page never touches a concrete UI. It reads and writes through a Document,
// so the same logic drives the terminal front end and in-memory fakes in tests.
package dashboard

import "context"

// Selectors of the elements the page binds to. An element missing from the
// Document means the widget is not on this page.
const (
	SelActivityFeed        = "#activity-feed"
	SelExecutionsTable     = "#executions-table"
	SelExecutionID         = "[data-execution-id]"
	SelStatusLabel         = "#status-label"
	SelStatusUpdated       = "#status-updated"
	SelStatusLogs          = "#status-logs"
	SelExecuteButton       = "#execute-btn"
	SelBuilderSelect       = "#builder-select"
	SelBackendSelect       = "#backend-select"
	SelPayload             = "#payload"
	SelExecuteNotification = "#execute-notification"
	SelRegisterButton      = "#register-builder"
	SelBuilderName         = "#builder-name"
	SelBuilderDescription  = "#builder-description"
	SelBuilderNotification = "#builder-notification"

	// AttrExecutionID carries the execution shown on a status page.
	AttrExecutionID = "data-execution-id"
)

// Document looks up page elements.
type Document interface {
	// Query returns the element matching selector, or nil when there is none.
	Query(selector string) Element
}

// Element is one bound page element.
type Element interface {
	Value() string
	Attr(name string) string
	SetText(text string)
	SetClass(class string)
	// RenderLines replaces the element's content with lines.
	RenderLines(lines []Line)
	// RenderRows replaces the element's content with rows.
	RenderRows(rows []Row)
	// OnClick registers a handler run when the element is activated.
	OnClick(handler func(ctx context.Context))
}

// Line is one rendered activity entry.
type Line struct {
	Stamp string // HH:MM:SS
	Text  string
}

// String renders the line as "[HH:MM:SS] text".
func (l Line) String() string {
	return "[" + l.Stamp + "] " + l.Text
}

// Row is one rendered execution table row.
type Row struct {
	ShortID   string
	Href      string
	BuilderID string
	Status    string
	UpdatedAt string
}
