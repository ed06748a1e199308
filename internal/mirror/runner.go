package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"midimirror/internal/catalog"
	"midimirror/internal/config"
	"midimirror/internal/fetch"
	"midimirror/internal/model"
	"midimirror/internal/sanitize"
)

// ErrNoCategories is returned when the index page contains no category
// links. This usually means the index URL or the catalog prefix is
// wrong, so the run stops before touching any category page.
var ErrNoCategories = errors.New("no categories found on index page")

// Runner walks the catalog and mirrors its files to the local disk.
//
// Design decision: Progress lines go to an injected io.Writer rather
// than through the logger because:
//  1. The per-file "title -> dest [outcome]" lines are a stable
//     contract that scripts grep and diff between runs
//  2. Diagnostics can then stay on stderr at whatever log level the
//     user chose without disturbing that contract
//  3. Tests can capture the exact transcript with a bytes.Buffer
type Runner struct {
	// cfg holds the validated run configuration.
	cfg *config.Config

	// client performs page fetches and file downloads.
	client *fetch.Client

	// extractor parses category and file links out of catalog pages.
	extractor *catalog.Extractor

	// out receives the progress transcript.
	out io.Writer

	// logger receives diagnostics that do not belong in the transcript.
	logger *slog.Logger

	// sleep implements the politeness pause. Injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets the writer that receives progress lines.
// Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithLogger sets a custom logger for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSleep replaces the politeness pause implementation.
// Tests use this to record requested pauses without waiting.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// New creates a Runner from its collaborators.
//
// Design decision: We require the fetch client and extractor rather
// than building them from the config because:
//  1. The caller already constructs them for flag handling
//  2. Tests can substitute instrumented instances
//  3. The Runner stays free of HTTP and parsing concerns
func New(cfg *config.Config, client *fetch.Client, extractor *catalog.Extractor, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		client:    client,
		extractor: extractor,
		out:       os.Stdout,
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run executes one complete mirror run and returns its summary.
//
// The summary is returned even on error so callers can report partial
// progress. An unwritable output root, an index fetch failure, or
// ErrNoCategories aborts the run; context cancellation stops it between
// requests.
func (r *Runner) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		IndexURL:  r.cfg.IndexURL,
		OutputDir: r.cfg.OutputDir,
		DryRun:    r.cfg.DryRun,
		Started:   time.Now(),
	}

	if !r.cfg.DryRun {
		if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
			summary.Finished = time.Now()
			return summary, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Fprintf(r.out, "Fetching index: %s\n", r.cfg.IndexURL)

	indexHTML, err := r.client.Text(ctx, r.cfg.IndexURL)
	if err != nil {
		summary.Finished = time.Now()
		return summary, err
	}

	categories := r.extractor.Categories(indexHTML)
	r.logger.Debug("index parsed", "url", r.cfg.IndexURL, "categories", len(categories))

	if len(categories) == 0 {
		summary.Finished = time.Now()
		return summary, ErrNoCategories
	}

	if r.cfg.Limit > 0 && len(categories) > r.cfg.Limit {
		categories = categories[:r.cfg.Limit]
	}

	for _, cat := range categories {
		select {
		case <-ctx.Done():
			summary.Finished = time.Now()
			return summary, ctx.Err()
		default:
		}

		result, err := r.walkCategory(ctx, cat)
		summary.Categories = append(summary.Categories, result)
		summary.Seen += result.Seen
		summary.Downloaded += result.Downloaded
		summary.Skipped += result.Skipped
		summary.Failed += result.Failed

		if err != nil {
			summary.Finished = time.Now()
			return summary, err
		}
	}

	summary.Finished = time.Now()
	fmt.Fprintf(r.out, "\nDone. Seen: %d, downloaded: %d, out: %s\n",
		summary.Seen, summary.Downloaded, r.cfg.OutputDir)

	return summary, nil
}

// walkCategory fetches one category page and processes its files.
// A fetch failure is recorded on the result and does not abort the run;
// the returned error is reserved for context cancellation.
func (r *Runner) walkCategory(ctx context.Context, link catalog.CategoryLink) (model.CategoryResult, error) {
	result := model.CategoryResult{Name: link.Name, URL: link.URL}

	fmt.Fprintf(r.out, "\n== Category: %s ==\n", link.Name)

	if err := r.politeSleep(ctx); err != nil {
		return result, err
	}

	pageHTML, err := r.client.Text(ctx, link.URL)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		fmt.Fprintf(r.out, "  ! failed to fetch category: %v\n", err)
		r.logger.Warn("category fetch failed", "url", link.URL, "error", err)
		result.FetchError = err.Error()
		return result, nil
	}

	// The page's own heading names the category better than the index
	// link does, so it wins when present.
	if heading := r.extractor.Heading(pageHTML); heading != "" {
		if heading != result.Name {
			r.logger.Debug("category renamed by page heading", "link", result.Name, "heading", heading)
		}
		result.Name = heading
	}

	files := r.extractor.Files(pageHTML, result.Name)
	fmt.Fprintf(r.out, "Found %d MIDI links\n", len(files))

	if r.cfg.Limit > 0 && len(files) > r.cfg.Limit {
		files = files[:r.cfg.Limit]
	}

	result.Dir = sanitize.Slugify(result.Name)
	catDir := filepath.Join(r.cfg.OutputDir, result.Dir)

	// The category directory appears even when every link is skipped,
	// so the output tree always names the categories that were walked.
	// A failed mkdir is not fatal here; each download then records its
	// own error against the unreachable directory.
	if !r.cfg.DryRun {
		if err := os.MkdirAll(catDir, 0o755); err != nil {
			r.logger.Warn("failed to create category directory", "dir", catDir, "error", err)
		}
	}

	if r.cfg.Workers > 1 {
		err = r.processFilesParallel(ctx, files, catDir, &result)
	} else {
		err = r.processFiles(ctx, files, catDir, &result)
	}

	return result, err
}

// processFiles downloads the category's files one at a time, pausing
// after every file regardless of its outcome.
func (r *Runner) processFiles(ctx context.Context, files []catalog.FileLink, catDir string, cat *model.CategoryResult) error {
	for _, f := range files {
		dest := filepath.Join(catDir, sanitize.FilenameFromURL(f.URL))
		outcome := r.client.Download(ctx, f.URL, dest)

		fr := r.newFileResult(f, dest, outcome)
		fmt.Fprintf(r.out, "- %s -> %s [%s]\n", f.Title, dest, outcome.Tag())
		addOutcome(cat, fr)

		if err := r.politeSleep(ctx); err != nil {
			return err
		}
	}

	return nil
}

// processFilesParallel downloads the category's files with a bounded
// worker group. Outcomes keep the page's link order in the result even
// though downloads finish out of order.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// The politeness pause runs inside each worker, so the aggregate
// request rate grows with the worker count; the default of one worker
// preserves the strictly sequential cadence.
func (r *Runner) processFilesParallel(ctx context.Context, files []catalog.FileLink, catDir string, cat *model.CategoryResult) error {
	results := make([]model.FileResult, len(files))
	dests := make([]string, len(files))

	// Links whose destination repeats within the category run after the
	// group, so two goroutines never stream into the same temporary
	// file. The second occurrence then short-circuits on the existing
	// file exactly as it would sequentially.
	deferred := make(map[int]bool)
	firstForDest := make(map[string]int, len(files))
	for i, f := range files {
		dests[i] = filepath.Join(catDir, sanitize.FilenameFromURL(f.URL))
		if _, ok := firstForDest[dests[i]]; ok {
			deferred[i] = true
		} else {
			firstForDest[dests[i]] = i
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	var mu sync.Mutex
	for i, f := range files {
		if deferred[i] {
			continue
		}

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			outcome := r.client.Download(gctx, f.URL, dests[i])
			fr := r.newFileResult(f, dests[i], outcome)

			mu.Lock()
			results[i] = fr
			fmt.Fprintf(r.out, "- %s -> %s [%s]\n", f.Title, dests[i], outcome.Tag())
			mu.Unlock()

			return r.politeSleep(gctx)
		})
	}

	groupErr := g.Wait()

	if groupErr == nil {
		for i, f := range files {
			if !deferred[i] {
				continue
			}

			outcome := r.client.Download(ctx, f.URL, dests[i])
			results[i] = r.newFileResult(f, dests[i], outcome)
			fmt.Fprintf(r.out, "- %s -> %s [%s]\n", f.Title, dests[i], outcome.Tag())

			if err := r.politeSleep(ctx); err != nil {
				groupErr = err
				break
			}
		}
	}

	for _, fr := range results {
		if fr.Status == "" {
			continue // never ran; the group was cancelled first
		}
		addOutcome(cat, fr)
	}

	return groupErr
}

// newFileResult converts a download outcome into its stored record,
// hashing freshly written files for the run history.
func (r *Runner) newFileResult(link catalog.FileLink, dest string, outcome fetch.Outcome) model.FileResult {
	fr := model.FileResult{
		Title:  link.Title,
		URL:    link.URL,
		Dest:   dest,
		Status: string(outcome.Status),
		Bytes:  outcome.Bytes,
	}

	if outcome.Err != nil {
		fr.Error = outcome.Err.Error()
	}

	if outcome.Status == fetch.StatusDownloaded {
		sum, err := hashFile(dest)
		if err != nil {
			r.logger.Debug("failed to hash downloaded file", "dest", dest, "error", err)
		} else {
			fr.SHA256 = sum
		}
	}

	return fr
}

// addOutcome appends a file record to the category and bumps the
// matching counter. Exists and dry-run outcomes both count as skipped.
func addOutcome(cat *model.CategoryResult, fr model.FileResult) {
	cat.Seen++
	switch fr.Status {
	case string(fetch.StatusDownloaded):
		cat.Downloaded++
	case string(fetch.StatusExists), string(fetch.StatusDryRun):
		cat.Skipped++
	default:
		cat.Failed++
	}
	cat.Files = append(cat.Files, fr)
}

// politeSleep pauses for the configured delay plus a random jitter.
// A zero delay with zero jitter skips the pause entirely.
func (r *Runner) politeSleep(ctx context.Context) error {
	d := r.cfg.Delay
	if r.cfg.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(r.cfg.Jitter)))
	}

	if d <= 0 {
		return ctx.Err()
	}

	return r.sleep(ctx, d)
}

// sleepContext waits for the duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// hashFile returns the hex-encoded SHA-256 digest of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Hashing the file we just wrote
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
