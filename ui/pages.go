package ui

import (
	"html/template"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"

	"github.com/narvanalabs/builder-dashboard/internal/dashboard"
	"github.com/narvanalabs/builder-dashboard/internal/models"
)

// IndexData is rendered by the dashboard page.
type IndexData struct {
	Builders   []*models.Builder
	Executions []*models.Execution
	Backends   []string
	Activity   []models.ActivityItem
}

// BuildersData is rendered by the builders page.
type BuildersData struct {
	Builders []*models.Builder
	Activity []models.ActivityItem
}

// ActivityData is rendered by the activity page. Items are oldest first, as the
// store returns them.
type ActivityData struct {
	Activity []models.ActivityItem
}

// StatusData is rendered by the execution status page. Builder is nil when the
// execution's builder no longer exists.
type StatusData struct {
	Execution *models.Execution
	Builder   *models.Builder
}

// Pages renders the dashboard's HTML pages.
type Pages struct {
	pages map[string]*template.Template
}

// NewPages parses the embedded page templates. loc sets the time zone of rendered
// timestamps.
func NewPages(loc *time.Location) (*Pages, error) {
	if loc == nil {
		loc = time.Local
	}
	pages, err := parsePages(templates, funcs(loc))
	if err != nil {
		return nil, err
	}
	return &Pages{pages: pages}, nil
}

// Index renders the dashboard page.
func (p *Pages) Index(data IndexData) templ.Component {
	return templ.FromGoHTML(p.pages[PageIndex], data)
}

// Builders renders the builders page.
func (p *Pages) Builders(data BuildersData) templ.Component {
	return templ.FromGoHTML(p.pages[PageBuilders], data)
}

// Status renders the execution status page.
func (p *Pages) Status(data StatusData) templ.Component {
	return templ.FromGoHTML(p.pages[PageStatus], data)
}

// Activity renders the activity page.
func (p *Pages) Activity(data ActivityData) templ.Component {
	return templ.FromGoHTML(p.pages[PageActivity], data)
}

const (
	badgeBase        = "inline-flex items-center rounded px-2 py-0.5 text-xs font-medium bg-gray-100 text-gray-700"
	notificationBase = "notification is-hidden rounded p-3 text-sm"
)

// StatusBadgeClass returns the class list of a status badge.
func StatusBadgeClass(status models.ExecutionStatus) string {
	switch status {
	case models.ExecutionStatusSucceeded:
		return twmerge.Merge(badgeBase, "bg-green-100 text-green-800")
	case models.ExecutionStatusFailed:
		return twmerge.Merge(badgeBase, "bg-red-100 text-red-800")
	case models.ExecutionStatusRunning:
		return twmerge.Merge(badgeBase, "bg-yellow-100 text-yellow-800")
	default:
		return badgeBase
	}
}

func funcs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"cls":          twmerge.Merge,
		"badgeClass":   StatusBadgeClass,
		"notification": func(extra ...string) string { return twmerge.Merge(append([]string{notificationBase}, extra...)...) },
		"shortID":      dashboard.ShortID,
		"statusHref":   dashboard.StatusHref,
		"updatedAt":    dashboard.FormatUpdatedAt,
		"rawNumber":    dashboard.FormatRawNumber,
		"clock":        func(epoch float64) string { return dashboard.FormatClock(epoch, loc) },
		"joinLogs":     dashboard.JoinLogs,
		"activityLines": func(items []models.ActivityItem) []dashboard.Line {
			return dashboard.ActivityLines(items, loc)
		},
		"sortRows": func(executions []*models.Execution) []dashboard.Row {
			flat := make([]models.Execution, len(executions))
			for i, e := range executions {
				flat[i] = *e
			}
			return dashboard.ExecutionRows(flat)
		},
	}
}
