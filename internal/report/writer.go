package report

import (
	"io"

	"midimirror/internal/model"
)

// Writer defines the interface for run report output.
// Implementations write run summaries in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the run summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *model.RunSummary) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
