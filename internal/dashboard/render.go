package dashboard

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/narvanalabs/builder-dashboard/internal/models"
)

const shortIDLen = 8

// ActivityLines renders items newest first. items is not modified.
func ActivityLines(items []models.ActivityItem, loc *time.Location) []Line {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[len(items)-1-i] = FormatActivity(item, loc)
	}
	return lines
}

// FormatActivity renders a single activity item.
func FormatActivity(item models.ActivityItem, loc *time.Location) Line {
	line := Line{Stamp: FormatClock(item.Timestamp, loc)}
	switch item.Type {
	case models.ActivityBuilderRegistered:
		line.Text = "Builder registered: " + item.Name
	case models.ActivityExecutionCreated:
		line.Text = "Execution created: " + item.ExecutionID
	case models.ActivityLog:
		line.Text = item.Message
	default:
		line.Text = string(item.Type)
	}
	return line
}

// FormatClock renders epoch seconds as HH:MM:SS in loc (local time when nil).
func FormatClock(epochSeconds float64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return models.TimeFromEpoch(epochSeconds).In(loc).Format("15:04:05")
}

// ExecutionRows renders executions most recently updated first. Executions with
// equal updated_at keep their input order. executions is not modified.
func ExecutionRows(executions []models.Execution) []Row {
	sorted := make([]models.Execution, len(executions))
	copy(sorted, executions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt > sorted[j].UpdatedAt
	})

	rows := make([]Row, len(sorted))
	for i, e := range sorted {
		rows[i] = Row{
			ShortID:   ShortID(e.ID),
			Href:      StatusHref(e.ID),
			BuilderID: e.BuilderID,
			Status:    string(e.Status),
			UpdatedAt: FormatUpdatedAt(e.UpdatedAt),
		}
	}
	return rows
}

// ShortID returns the first eight characters of id followed by an ellipsis.
func ShortID(id string) string {
	r := []rune(id)
	if len(r) > shortIDLen {
		r = r[:shortIDLen]
	}
	return string(r) + "…"
}

// StatusHref returns the status page path for an execution.
func StatusHref(id string) string {
	return "/status/" + url.PathEscape(id)
}

// FormatUpdatedAt renders a timestamp with exactly two decimals.
func FormatUpdatedAt(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatRawNumber renders v in its shortest exact decimal form.
func FormatRawNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// JoinLogs joins log lines with newlines.
func JoinLogs(logs []string) string {
	return strings.Join(logs, "\n")
}
