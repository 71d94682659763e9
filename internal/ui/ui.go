// Package ui prints human-readable diagnostics using pterm.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/jacoelho/dtd/internal/report"
)

// Printer writes diagnostics to a single writer.
type Printer struct {
	w     io.Writer
	color bool
}

// Config holds printer configuration.
type Config struct {
	ErrWriter io.Writer
	NoColor   bool
}

// Configure returns a printer for cfg.ErrWriter. Color is used only when
// allowed and the writer is a terminal. Printers leave pterm's global
// settings alone and are safe to use concurrently.
func Configure(cfg Config) *Printer {
	w := cfg.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	return &Printer{w: w, color: !cfg.NoColor && IsTerminal(w)}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) error {
	return p.print(pterm.Error, format, args...)
}

// Warning prints a warning message.
func (p *Printer) Warning(format string, args ...any) error {
	return p.print(pterm.Warning, format, args...)
}

func (p *Printer) print(prefix pterm.PrefixPrinter, format string, args ...any) error {
	s := prefix.Sprintf(format+"\n", args...)
	if !p.color {
		s = pterm.RemoveColorFromString(s)
	}
	_, err := io.WriteString(p.w, s)
	return err
}

// Report prints every problem in r, followed by a summary line.
func (p *Printer) Report(r report.Result) error {
	if r.Valid {
		return nil
	}
	if r.Error != "" {
		where := r.Document
		if r.Line > 0 {
			where = fmt.Sprintf("%s:%d", where, r.Line)
			if r.Column > 0 {
				where = fmt.Sprintf("%s:%d", where, r.Column)
			}
		}
		if r.Stage != "" {
			return p.Error("%s: %s: %s", where, r.Stage, r.Error)
		}
		return p.Error("%s: %s", where, r.Error)
	}
	for i := range r.Violations {
		if err := p.Error("%s: %s", r.Document, r.Violations[i].Error()); err != nil {
			return err
		}
	}
	return p.Warning("%s fails to validate (%d %s)", r.Document, len(r.Violations), plural(len(r.Violations), "error", "errors"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
