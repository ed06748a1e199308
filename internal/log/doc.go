// Package log constructs the loggers used across the mirror.
//
// Progress output (category banners, per-file lines, the final summary)
// is written to stdout by the orchestrator and never routed through
// this package. Diagnostics (retries, skipped categories, charset
// fallbacks) flow through a *slog.Logger built here and land on stderr,
// so normal runs stay quiet and machine-readable on stdout.
//
// # Usage
//
//	logger := log.New(os.Stderr, verbose)
//	logger.Debug("category fetched", "url", u, "links", n)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
