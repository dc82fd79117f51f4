// Package output renders sentinelctl results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelvnc/sentinel/cli/pkg/color"
)

// Format selects how Data renders values.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// Printer writes one command's output.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format Format
}

// New creates a Printer. Status lines go to errOut when format is
// structured so stdout stays machine-readable.
func New(out, errOut io.Writer, format Format) *Printer {
	return &Printer{out: out, errOut: errOut, format: format}
}

// Structured reports whether values should be emitted with Data.
func (p *Printer) Structured() bool {
	return p.format == FormatJSON || p.format == FormatYAML
}

func (p *Printer) status() io.Writer {
	if p.Structured() {
		return p.errOut
	}
	return p.out
}

func (p *Printer) Success(format string, a ...interface{}) {
	successColor.Fprintf(p.status(), "✓ "+format+"\n", a...)
}

func (p *Printer) Error(format string, a ...interface{}) {
	errorColor.Fprintf(p.errOut, "✗ "+format+"\n", a...)
}

func (p *Printer) Info(format string, a ...interface{}) {
	infoColor.Fprintf(p.status(), format+"\n", a...)
}

func (p *Printer) Warn(format string, a ...interface{}) {
	warnColor.Fprintf(p.status(), "⚠ "+format+"\n", a...)
}

// Data writes v as JSON or YAML. Table format falls back to JSON.
func (p *Printer) Data(v interface{}) error {
	if p.format == FormatYAML {
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows as aligned columns.
func (p *Printer) Table(t *Table) {
	t.Render(p.out)
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells render empty and extra cells are
// ignored.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *Table) Render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range t.headers {
		headerColor.Fprintf(w, "%-*s", widths[i], h)
		fmt.Fprint(w, sep(i, len(t.headers)))
	}
	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i]), sep(i, len(t.headers)))
	}
	for _, row := range t.rows {
		for i, cell := range row {
			fmt.Fprintf(w, "%-*s%s", widths[i], cell, sep(i, len(row)))
		}
	}
}

func sep(i, n int) string {
	if i == n-1 {
		return "\n"
	}
	return "  "
}
