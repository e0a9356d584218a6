// Package logging builds the caster's slog.Logger, grounded on
// jmylchreest-tvarr's internal/observability/logger.go (level parsing,
// SetDefault) and simplified to the two output shapes this system needs.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a slog.Logger writing to os.Stdout at level, text-formatted
// for a human running ipcaster interactively, or JSON when json is true for
// consumption by a log aggregator in server mode.
func New(level slog.Level, json bool) *slog.Logger {
	return NewWithWriter(level, json, os.Stdout)
}

// NewWithWriter is New with an explicit writer, for tests.
func NewWithWriter(level slog.Level, json bool, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetDefault installs logger as the package-level slog default, so every
// slog.Info/Error/Debug call elsewhere in the codebase routes through it.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
