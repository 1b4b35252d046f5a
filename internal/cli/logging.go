package cli

import (
	"io"
	"log/slog"
)

// newLogger writes pipeline logs as text to w. Verbose lowers the level
// to debug; otherwise only warnings and errors are shown so normal output
// is not interleaved with per-batch progress.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
