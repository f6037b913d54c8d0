// Package memview is an in-memory dashboard.Document. It backs the terminal
// front end and stands in for a real page in tests.
package memview

import (
	"context"
	"sync"

	"github.com/narvanalabs/builder-dashboard/internal/dashboard"
)

// Document is a set of elements keyed by selector. It is safe for concurrent use.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	onChange []func()
}

// New creates an empty document.
func New() *Document {
	return &Document{elements: make(map[string]*Element)}
}

// Add registers an element under selector and returns it. Adding an existing
// selector returns the element already registered.
func (d *Document) Add(selector string) *Element {
	return d.AddWithAttrs(selector, nil)
}

// AddWithAttrs registers an element carrying attrs.
func (d *Document) AddWithAttrs(selector string, attrs map[string]string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.elements[selector]; ok {
		return el
	}
	el := &Element{doc: d, attrs: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		el.attrs[k] = v
	}
	d.elements[selector] = el
	return el
}

// Query implements dashboard.Document.
func (d *Document) Query(selector string) dashboard.Element {
	el := d.Get(selector)
	if el == nil {
		return nil
	}
	return el
}

// Get returns the concrete element for selector, or nil.
func (d *Document) Get(selector string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elements[selector]
}

// OnChange registers fn to run after any element is modified.
func (d *Document) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

func (d *Document) changed() {
	d.mu.RLock()
	hooks := make([]func(), len(d.onChange))
	copy(hooks, d.onChange)
	d.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// Element is an in-memory page element.
type Element struct {
	doc *Document

	mu       sync.Mutex
	value    string
	attrs    map[string]string
	text     string
	class    string
	lines    []dashboard.Line
	rows     []dashboard.Row
	handlers []func(ctx context.Context)
	renders  int
}

// Value returns the element's input value.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// SetValue sets the input value, as a user typing into a field would.
func (e *Element) SetValue(v string) {
	e.mu.Lock()
	e.value = v
	e.mu.Unlock()
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

// SetText replaces the element's text.
func (e *Element) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
	e.doc.changed()
}

// Text returns the element's text.
func (e *Element) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetClass replaces the element's class list.
func (e *Element) SetClass(class string) {
	e.mu.Lock()
	e.class = class
	e.mu.Unlock()
	e.doc.changed()
}

// Class returns the element's class list.
func (e *Element) Class() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.class
}

// RenderLines replaces the element's lines.
func (e *Element) RenderLines(lines []dashboard.Line) {
	e.mu.Lock()
	e.lines = append([]dashboard.Line(nil), lines...)
	e.renders++
	e.mu.Unlock()
	e.doc.changed()
}

// Lines returns a copy of the rendered lines.
func (e *Element) Lines() []dashboard.Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]dashboard.Line(nil), e.lines...)
}

// RenderRows replaces the element's rows.
func (e *Element) RenderRows(rows []dashboard.Row) {
	e.mu.Lock()
	e.rows = append([]dashboard.Row(nil), rows...)
	e.renders++
	e.mu.Unlock()
	e.doc.changed()
}

// Rows returns a copy of the rendered rows.
func (e *Element) Rows() []dashboard.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]dashboard.Row(nil), e.rows...)
}

// Renders counts RenderLines and RenderRows calls.
func (e *Element) Renders() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renders
}

// OnClick registers a click handler.
func (e *Element) OnClick(handler func(ctx context.Context)) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	e.mu.Unlock()
}

// Click runs the registered click handlers in order.
func (e *Element) Click(ctx context.Context) {
	e.mu.Lock()
	handlers := make([]func(ctx context.Context), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	for _, h := range handlers {
		h(ctx)
	}
}

// DashboardPage returns a document with every element of the main dashboard:
// the activity feed, the executions table and both forms.
func DashboardPage() *Document {
	d := New()
	for _, sel := range []string{
		dashboard.SelActivityFeed,
		dashboard.SelExecutionsTable,
		dashboard.SelExecuteButton,
		dashboard.SelBuilderSelect,
		dashboard.SelBackendSelect,
		dashboard.SelPayload,
		dashboard.SelExecuteNotification,
		dashboard.SelRegisterButton,
		dashboard.SelBuilderName,
		dashboard.SelBuilderDescription,
		dashboard.SelBuilderNotification,
	} {
		d.Add(sel)
	}
	return d
}

// StatusPage returns a document with the status panel for execution id.
func StatusPage(id string) *Document {
	d := New()
	d.AddWithAttrs(dashboard.SelExecutionID, map[string]string{dashboard.AttrExecutionID: id})
	d.Add(dashboard.SelStatusLabel)
	d.Add(dashboard.SelStatusUpdated)
	d.Add(dashboard.SelStatusLogs)
	return d
}
