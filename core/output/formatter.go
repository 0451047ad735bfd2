// Package output renders command results for humans and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	apperrors "agrimarket/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatAuto picks table on a terminal and JSON otherwise
	FormatAuto Format = "auto"

	// FormatTable is a human-readable table
	FormatTable Format = "table"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatTable, FormatJSON:
		return f, nil
	default:
		return "", apperrors.Validationf("format", "unknown format %q (use auto, table or json)", s)
	}
}

// Resolve turns FormatAuto into a concrete format for w
func (f Format) Resolve(w io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return FormatTable
	}
	return FormatJSON
}

// Table is a titled grid of cells
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string

	// Notes are printed under the table
	Notes []string
}

// Tabular is implemented by results that can be shown as a table
type Tabular interface {
	Table() Table
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes v. data is what gets encoded in machine formats.
	Render(w io.Writer, v Tabular, data interface{}) error
}

// For returns the formatter for a concrete format
func For(f Format) Formatter {
	if f == FormatJSON {
		return JSONFormatter{}
	}
	return TableFormatter{}
}

// Render is shorthand for For(format.Resolve(w)).Render
func Render(w io.Writer, format Format, v Tabular, data interface{}) error {
	return For(format.Resolve(w)).Render(w, v, data)
}

// JSONFormatter writes indented JSON
type JSONFormatter struct{}

// Format implements Formatter
func (JSONFormatter) Format() Format { return FormatJSON }

// Render implements Formatter
func (JSONFormatter) Render(w io.Writer, _ Tabular, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	noteStyle   = lipgloss.NewStyle().Faint(true)
)

// TableFormatter draws a bordered table
type TableFormatter struct{}

// Format implements Formatter
func (TableFormatter) Format() Format { return FormatTable }

// Render implements Formatter
func (TableFormatter) Render(w io.Writer, v Tabular, _ interface{}) error {
	t := v.Table()

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n")
	}

	if len(t.Rows) == 0 {
		b.WriteString("(no rows)\n")
	} else {
		grid := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(t.Headers...).
			Rows(t.Rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		b.WriteString(grid.Render())
		b.WriteString("\n")
	}

	for _, note := range t.Notes {
		b.WriteString(noteStyle.Render(note))
		b.WriteString("\n")
	}

	_, err := fmt.Fprint(w, b.String())
	return err
}

// Money formats a rupee amount without decimals
func Money(v float64) string {
	return fmt.Sprintf("₹%.0f", v)
}

// Float formats v with two decimals
func Float(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
