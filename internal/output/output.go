// Package output provides consistent CLI output formatting with colors,
// tables, and progress indicators.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that colors its output when out is a terminal
// and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: GetStyles(!shouldColor(out)),
	}
}

// NewPlain creates a Writer that never colors output.
func NewPlain(out io.Writer) *Writer {
	return &Writer{
		out:    out,
		styles: NoColorStyles(),
	}
}

// shouldColor reports whether out is an interactive terminal.
func shouldColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Header prints a section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Success prints a success message with a checkmark.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Info prints an unadorned line.
func (w *Writer) Info(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Infof prints a formatted unadorned line.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// KeyValue prints an aligned label/value pair.
func (w *Writer) KeyValue(key, value string) {
	_, _ = fmt.Fprintf(w.out, "  %s %s\n",
		w.styles.Label.Render(fmt.Sprintf("%-18s", key+":")), value)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Table prints rows under a header with columns padded to the widest
// cell. Styling applies to the header only so the cells stay grep-able.
func (w *Writer) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		fmt.Fprintf(&b, "%-*s  ", widths[i], h)
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(strings.TrimRight(b.String(), " ")))

	var sep strings.Builder
	for i := range headers {
		sep.WriteString(strings.Repeat("-", widths[i]))
		sep.WriteString("  ")
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(strings.TrimRight(sep.String(), " ")))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		_, _ = fmt.Fprintln(w.out, strings.TrimRight(line.String(), " "))
	}
}

// Progress prints an in-place progress bar.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
