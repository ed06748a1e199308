package log

import (
	"io"
	"log/slog"
)

// New creates the application's diagnostic logger.
//
// Design decision: We keep diagnostics on a separate slog stream rather
// than mixing them into the progress output because:
//  1. Progress lines on stdout form a stable contract that scripts parse
//  2. Warnings and debug traces belong on stderr where they cannot
//     corrupt that contract
//  3. slog attributes keep URLs and destination paths greppable in
//     verbose runs
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Discard returns a logger that drops every record. It keeps optional
// logger parameters non-nil in tests and library callers.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
