package report

import (
	"fmt"
	"io"
	"strings"

	"midimirror/internal/model"
)

// TextWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// showFiles controls whether every file outcome is listed under its
	// category. Off by default because full catalogs run to thousands
	// of lines.
	showFiles bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowFiles configures the writer to list every file outcome.
func WithShowFiles(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showFiles = show
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		showFiles:  false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *TextWriter) Write(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeTotals(&sb, summary)
	w.writeCategories(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *TextWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        MIRROR RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Index URL:   %s\n", summary.IndexURL))
	sb.WriteString(fmt.Sprintf("Output Dir:  %s\n", summary.OutputDir))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", summary.Started.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", summary.Duration()))

	if summary.DryRun {
		sb.WriteString("Mode:        DRY RUN (no files written)\n")
	}

	sb.WriteString("\n")
}

// writeTotals writes the run totals section.
func (w *TextWriter) writeTotals(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOTALS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  SEEN:       %d\n", summary.Seen))
	sb.WriteString(fmt.Sprintf("  DOWNLOADED: %d\n", summary.Downloaded))
	sb.WriteString(fmt.Sprintf("  SKIPPED:    %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("  FAILED:     %d\n", summary.Failed))
	sb.WriteString("\n")
}

// writeCategories writes the per-category breakdown.
func (w *TextWriter) writeCategories(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CATEGORIES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Categories) == 0 {
		sb.WriteString("  No categories walked\n\n")
		return
	}

	for _, cat := range summary.Categories {
		if cat.FetchError != "" {
			sb.WriteString(fmt.Sprintf("  [!] %s - fetch failed: %s\n", cat.Name, cat.FetchError))
			continue
		}

		sb.WriteString(fmt.Sprintf("  [+] %s (%d seen, %d downloaded, %d skipped, %d failed)\n",
			cat.Name, cat.Seen, cat.Downloaded, cat.Skipped, cat.Failed))

		if !w.showFiles {
			continue
		}

		for _, file := range cat.Files {
			tag := file.Status
			if file.Error != "" {
				tag = fmt.Sprintf("%s: %s", file.Status, file.Error)
			}
			sb.WriteString(fmt.Sprintf("      * %s -> %s [%s]\n", file.Title, file.Dest, tag))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by midimirror\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
