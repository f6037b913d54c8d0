// Package termview paints a memview document to a terminal.
package termview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/narvanalabs/builder-dashboard/internal/dashboard"
	"github.com/narvanalabs/builder-dashboard/internal/dashboard/memview"
	"github.com/narvanalabs/builder-dashboard/internal/models"
)

const clearScreen = "\033[H\033[2J"

// Screen renders the dashboard sections present in a document.
type Screen struct {
	w   io.Writer
	doc *memview.Document

	// Live clears the terminal before each frame.
	Live bool
	// Headers prints table headers.
	Headers bool

	mu    sync.Mutex
	dirty bool
}

// NewScreen creates a screen painting doc to w.
func NewScreen(w io.Writer, doc *memview.Document) *Screen {
	s := &Screen{w: w, doc: doc, Headers: true}
	doc.OnChange(s.markDirty)
	return s
}

func (s *Screen) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Follow repaints whenever the document changed, checking every interval, until
// ctx is done.
func (s *Screen) Follow(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.mu.Lock()
			dirty := s.dirty
			s.dirty = false
			s.mu.Unlock()
			if !dirty {
				continue
			}
			if err := s.Render(); err != nil {
				return err
			}
		}
	}
}

// Render writes one full frame.
func (s *Screen) Render() error {
	var buf bytes.Buffer
	if s.Live {
		buf.WriteString(clearScreen)
	}

	if el := s.doc.Get(dashboard.SelExecutionID); el != nil {
		s.renderStatus(&buf, el.Attr(dashboard.AttrExecutionID))
	}
	if el := s.doc.Get(dashboard.SelExecutionsTable); el != nil {
		if err := s.renderExecutions(&buf, el.Rows()); err != nil {
			return err
		}
	}
	if el := s.doc.Get(dashboard.SelActivityFeed); el != nil {
		renderActivity(&buf, el.Lines())
	}
	renderNotification(&buf, s.doc.Get(dashboard.SelExecuteNotification))
	renderNotification(&buf, s.doc.Get(dashboard.SelBuilderNotification))

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf.Bytes())
	return err
}

func (s *Screen) renderStatus(w io.Writer, id string) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Execution %s\n", id)

	if el := s.doc.Get(dashboard.SelStatusLabel); el != nil {
		fmt.Fprintf(w, "status:  %s\n", StatusColor(el.Text()).Sprint(el.Text()))
	}
	if el := s.doc.Get(dashboard.SelStatusUpdated); el != nil {
		fmt.Fprintf(w, "updated: %s\n", el.Text())
	}
	if el := s.doc.Get(dashboard.SelStatusLogs); el != nil && el.Text() != "" {
		fmt.Fprintln(w, "logs:")
		for _, line := range strings.Split(el.Text(), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	fmt.Fprintln(w)
}

func (s *Screen) renderExecutions(w io.Writer, rows []dashboard.Row) error {
	color.New(color.Bold).Fprintln(w, "Executions")

	table := Table{
		Headers: TableRow{
			{Contents: "id", Color: color.New(color.Bold)},
			{Contents: "builder", Color: color.New(color.Bold)},
			{Contents: "status", Color: color.New(color.Bold)},
			{Contents: "updated", Color: color.New(color.Bold)},
			{Contents: "link", Color: color.New(color.Bold)},
		},
	}
	for _, r := range rows {
		table.Data = append(table.Data, TableRow{
			{Contents: r.ShortID},
			{Contents: r.BuilderID},
			{Contents: r.Status, Color: StatusColor(r.Status)},
			{Contents: r.UpdatedAt},
			{Contents: r.Href, Color: color.New(color.Faint)},
		})
	}
	if err := table.Render(w, s.Headers); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func renderActivity(w io.Writer, lines []dashboard.Line) {
	color.New(color.Bold).Fprintln(w, "Activity")
	faint := color.New(color.Faint)
	for _, l := range lines {
		fmt.Fprintf(w, "%s %s\n", faint.Sprint("["+l.Stamp+"]"), l.Text)
	}
	fmt.Fprintln(w)
}

func renderNotification(w io.Writer, el *memview.Element) {
	if el == nil || el.Text() == "" {
		return
	}
	fmt.Fprintln(w, SeverityColor(el.Class()).Sprint(el.Text()))
}

// StatusColor picks the color of an execution status.
func StatusColor(status string) *color.Color {
	switch models.ExecutionStatus(status) {
	case models.ExecutionStatusSucceeded:
		return color.New(color.FgGreen)
	case models.ExecutionStatusFailed:
		return color.New(color.FgRed)
	case models.ExecutionStatusRunning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}

// SeverityColor picks the color of a notification from its class list.
func SeverityColor(class string) *color.Color {
	for _, c := range strings.Fields(class) {
		switch c {
		case dashboard.SeverityDanger:
			return color.New(color.FgRed, color.Bold)
		case dashboard.SeveritySuccess:
			return color.New(color.FgGreen)
		}
	}
	return color.New(color.Reset)
}
