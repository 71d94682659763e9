// Package logging builds the slog logger used by the command line.
package logging

import (
	"io"
	"log/slog"
)

// Config controls logger construction.
type Config struct {
	Writer  io.Writer
	Verbose bool
	Quiet   bool
}

// New returns a text logger writing to cfg.Writer. Warnings and errors are
// shown by default, debug messages with Verbose, nothing with Quiet.
func New(cfg Config) *slog.Logger {
	if cfg.Quiet || cfg.Writer == nil {
		return slog.New(slog.DiscardHandler)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}
	handler := slog.NewTextHandler(cfg.Writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})
	return slog.New(handler)
}
