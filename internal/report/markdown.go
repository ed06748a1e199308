package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"midimirror/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeTotals(md, summary)
	w.writeCategories(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Mirror Run Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Index URL", "`" + summary.IndexURL + "`"},
			{"Output Dir", "`" + summary.OutputDir + "`"},
			{"Started", summary.Started.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().String()},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(summary *model.RunSummary) string {
	if summary.DryRun {
		return "📝 Dry run (no files written)"
	}
	return "✅ Complete"
}

// writeTotals writes the outcome summary section.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Outcome Summary")
	md.PlainText("")

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"⬇️ Downloaded", strconv.Itoa(summary.Downloaded)},
			{"⏭️ Skipped", strconv.Itoa(summary.Skipped)},
			{"❌ Failed", strconv.Itoa(summary.Failed)},
			{"**Seen**", "**" + strconv.Itoa(summary.Seen) + "**"},
		},
	})
	md.PlainText("")

	// Add pie chart if any files were seen
	if summary.Seen > 0 {
		w.writePieChart(md, summary)
	}

	// Add alert based on the run outcome
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart for the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("File Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if summary.Downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(summary.Downloaded))
	}
	if summary.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(summary.Skipped))
	}
	if summary.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.RunSummary) {
	failedCategories := 0
	for _, cat := range summary.Categories {
		if cat.FetchError != "" {
			failedCategories++
		}
	}

	switch {
	case failedCategories > 0:
		md.Cautionf(
			"%d category page(s) could not be fetched; their files were never seen. Rerun to pick them up.",
			failedCategories,
		)
	case summary.Failed > 0:
		md.Warningf(
			"%d file(s) failed to download. Rerunning the mirror retries only what is missing.",
			summary.Failed,
		)
	case summary.Seen == 0:
		md.Note("No downloadable files were found on the category pages.")
	case summary.Downloaded == 0:
		md.Note("Nothing new to download; every file already existed locally.")
	default:
		md.Tip("All files mirrored successfully.")
	}
	md.PlainText("")
}

// writeCategories writes the per-category breakdown.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, summary *model.RunSummary) {
	md.H2("Categories")
	md.PlainText("")

	if len(summary.Categories) == 0 {
		md.PlainText("No categories walked.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(summary.Categories))
	for i, cat := range summary.Categories {
		note := "-"
		if cat.FetchError != "" {
			note = "fetch failed: " + truncateString(cat.FetchError, 60)
		}

		rows[i] = []string{
			cat.Name,
			strconv.Itoa(cat.Seen),
			strconv.Itoa(cat.Downloaded),
			strconv.Itoa(cat.Skipped),
			strconv.Itoa(cat.Failed),
			note,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Seen", "Downloaded", "Skipped", "Failed", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes a table of failed downloads, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, summary *model.RunSummary) {
	rows := make([][]string, 0)
	for _, cat := range summary.Categories {
		for _, file := range cat.Files {
			if file.Error == "" {
				continue
			}
			rows = append(rows, []string{
				truncateString(file.Title, 50),
				cat.Name,
				truncateString(file.Error, 60),
			})
		}
	}

	if len(rows) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Category", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by midimirror*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
