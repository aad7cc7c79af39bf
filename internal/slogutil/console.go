package slogutil

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// NewConsoleHandler returns a styled charmbracelet handler when w is a
// terminal and the house Handler otherwise, so redirected output stays
// greppable.
func NewConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	if !IsTerminal(w) {
		return NewHandler(w, &slog.HandlerOptions{Level: level})
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.Level(level),
	})
}

// NewConsoleLogger wraps NewConsoleHandler in a slog.Logger.
func NewConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewConsoleHandler(w, level))
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
