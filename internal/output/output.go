// Package output provides CLI output handling with support for multiple modes.
//
// This package abstracts stdout/stderr writing to enable:
//   - Testable CLI commands via io.Writer injection
//   - JSON output mode for scripting
//   - Quiet mode for CI environments
//   - Colored output with TTY detection
//
// Diagnostics go to stderr as exactly one line per failure; hints and
// informational text go to stdout so the error stream stays parseable.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/runlim-dev/runlim/internal/terminal"
)

// contextKey is the key for storing Writer in context.
type contextKey struct{}

// Writer handles CLI output with multiple modes.
type Writer struct {
	Out      io.Writer
	Err      io.Writer
	JSON     bool
	Quiet    bool
	terminal *terminal.Info

	errorColor *color.Color
	infoColor  *color.Color
	mutedColor *color.Color
}

// Default returns a Writer configured for stdout/stderr.
func Default() *Writer {
	return NewWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// NewWriter creates a Writer with custom writers and terminal info.
func NewWriter(out, err io.Writer, term *terminal.Info) *Writer {
	w := &Writer{
		Out:      out,
		Err:      err,
		terminal: term,

		errorColor: color.New(color.FgRed),
		infoColor:  color.New(color.FgCyan),
		mutedColor: color.New(color.FgHiBlack),
	}

	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return w
}

// WithContext stores the Writer in the context.
func (w *Writer) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, w)
}

// FromContext retrieves the Writer from context, or returns Default().
func FromContext(ctx context.Context) *Writer {
	if w, ok := ctx.Value(contextKey{}).(*Writer); ok {
		return w
	}
	return Default()
}

// Terminal returns the terminal info.
func (w *Writer) Terminal() *terminal.Info {
	return w.terminal
}

// SetNoColor disables colored output.
func (w *Writer) SetNoColor(disabled bool) {
	w.terminal.ForceFlag = disabled
	if disabled {
		color.NoColor = true
	}
}

// Print writes to stdout (respects quiet mode).
func (w *Writer) Print(format string, args ...interface{}) {
	if !w.Quiet {
		fmt.Fprintf(w.Out, format, args...)
	}
}

// Println writes a line to stdout (respects quiet mode).
func (w *Writer) Println(args ...interface{}) {
	if !w.Quiet {
		fmt.Fprintln(w.Out, args...)
	}
}

// PrintJSON outputs structured data as JSON.
func (w *Writer) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Failure writes a single diagnostic line to stderr with an X mark.
// Failures print even in quiet mode.
func (w *Writer) Failure(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.errorColor.Fprint(w.Err, XMark+" ")
		fmt.Fprintln(w.Err, msg)
	} else {
		fmt.Fprintln(w.Err, XMark+" "+msg)
	}
}

// Info writes an info message to stdout.
func (w *Writer) Info(format string, args ...interface{}) {
	if w.Quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.infoColor.Fprint(w.Out, InfoMark+" ")
		fmt.Fprintln(w.Out, msg)
	} else {
		fmt.Fprintln(w.Out, InfoMark+" "+msg)
	}
}

// Muted writes muted/gray text to stdout.
func (w *Writer) Muted(format string, args ...interface{}) {
	if w.Quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.mutedColor.Fprintln(w.Out, msg)
	} else {
		fmt.Fprintln(w.Out, msg)
	}
}

// Status symbols
const (
	XMark    = "\u2717" // ✗
	InfoMark = "\u2139" // ℹ
)
