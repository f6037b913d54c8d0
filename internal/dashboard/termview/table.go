package termview

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// TableCell is one cell of a Table. A nil Color prints the contents plain.
type TableCell struct {
	Contents string
	Color    *color.Color
}

// TableRow is one row of a Table.
type TableRow []TableCell

// Table is a column-aligned table.
type Table struct {
	Headers TableRow
	Data    []TableRow
}

// Render writes the table to w. Headers are skipped when printHeaders is false.
func (t Table) Render(w io.Writer, printHeaders bool) error {
	rows := t.Data
	if printHeaders && len(t.Headers) > 0 {
		rows = append([]TableRow{t.Headers}, rows...)
	}

	widths := map[int]int{}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell.Contents); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			contents := cell.Contents
			if cell.Color != nil {
				contents = cell.Color.Sprint(contents)
			}
			b.WriteString(contents)
			if i < len(row)-1 {
				pad := widths[i] - utf8.RuneCountInString(cell.Contents) + 2
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
