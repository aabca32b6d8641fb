package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table wraps tabwriter for consistent styling.
type Table struct {
	writer *tabwriter.Writer
}

// NewTable creates a table writing to w. The headers, if any, are written
// first in bold upper case.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	if len(headers) > 0 {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = Bold(strings.ToUpper(h))
		}
		t.AddRow(row...)
	}
	return t
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	fmt.Fprintln(t.writer, strings.Join(cells, "\t"))
}

// Render flushes the table.
func (t *Table) Render() error {
	return t.writer.Flush()
}

// printField prints a single field with formatting.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s: %s\n", Cyan(label), value)
}
