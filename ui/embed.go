// Package ui provides the embedded HTML pages of the dashboard.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

// Page template file names.
const (
	PageIndex    = "index.html"
	PageBuilders = "builders.html"
	PageStatus   = "status.html"
	PageActivity = "activity.html"
)

const layoutFile = "layout.html"

// parsePages parses every page together with the shared layout. Each page gets its
// own template set rooted at the layout.
func parsePages(fsys fs.FS, funcs template.FuncMap) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{PageIndex, PageBuilders, PageStatus, PageActivity} {
		t, err := template.New(layoutFile).Funcs(funcs).ParseFS(fsys, "templates/"+layoutFile, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", page, err)
		}
		pages[page] = t
	}
	return pages, nil
}
