package model

import "time"

// RunSummary represents one complete mirror run with its totals.
// The orchestrator fills it as the crawl proceeds; reporting and the
// run-history database consume it afterwards.
type RunSummary struct {
	// IndexURL is the catalog index the run started from.
	IndexURL string `json:"index_url"`

	// OutputDir is the output root files were mirrored into.
	OutputDir string `json:"output_dir"`

	// DryRun marks preview runs that performed no downloads.
	DryRun bool `json:"dry_run"`

	// Started is when the index fetch began.
	Started time.Time `json:"started"`

	// Finished is when the last category completed.
	Finished time.Time `json:"finished"`

	// Seen counts every file link encountered across all categories.
	Seen int `json:"seen"`

	// Downloaded counts successful new writes.
	Downloaded int `json:"downloaded"`

	// Skipped counts files passed over because the destination already
	// existed or the run was a dry run.
	Skipped int `json:"skipped"`

	// Failed counts files whose download exhausted its retries.
	Failed int `json:"failed"`

	// Categories holds the per-category breakdown in crawl order.
	Categories []CategoryResult `json:"categories,omitempty"`
}

// Duration returns the wall-clock span of the run.
func (r *RunSummary) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// CategoryResult is the outcome of walking one category page.
type CategoryResult struct {
	// Name is the display name, after any heading override.
	Name string `json:"name"`

	// URL is the normalized category page URL.
	URL string `json:"url"`

	// Dir is the slugified directory name the category's files were
	// written under.
	Dir string `json:"dir,omitempty"`

	// FetchError is set when the category page could not be fetched;
	// such a category was skipped but the run continued.
	FetchError string `json:"fetch_error,omitempty"`

	// Seen, Downloaded, Skipped, and Failed count this category's
	// files the same way the run totals do.
	Seen       int `json:"seen"`
	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`

	// Files holds per-file outcomes in crawl order.
	Files []FileResult `json:"files,omitempty"`
}

// FileResult is the outcome of one file download attempt.
type FileResult struct {
	// Title is the decoded basename shown in log lines.
	Title string `json:"title"`

	// URL is the normalized download URL.
	URL string `json:"url"`

	// Dest is the destination path the file was (or would be) written
	// to.
	Dest string `json:"dest"`

	// Status is the outcome tag: downloaded, exists, dry-run, or error.
	Status string `json:"status"`

	// Error carries the failure message for error outcomes.
	Error string `json:"error,omitempty"`

	// Bytes is the number of body bytes written, for downloaded
	// outcomes.
	Bytes int64 `json:"bytes,omitempty"`

	// SHA256 is the hex digest of a newly downloaded file. It is
	// recorded for audit; existing files are never re-verified.
	SHA256 string `json:"sha256,omitempty"`
}
