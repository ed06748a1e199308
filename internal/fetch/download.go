package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partSuffix marks in-flight downloads next to their final destination.
const partSuffix = ".part"

// Status classifies the result of one download attempt.
type Status string

// Download statuses. Only StatusDownloaded writes a new file; the others
// are skips or failures.
const (
	StatusDownloaded Status = "downloaded"
	StatusExists     Status = "exists"
	StatusDryRun     Status = "dry-run"
	StatusError      Status = "error"
)

// Outcome reports the result of a Download call.
//
// Design decision: failure is carried as data instead of an error return
// because:
//  1. A failed file is a recoverable per-item event, not a reason to
//     stop the crawl
//  2. The orchestrator treats all four results uniformly when counting
//     and logging
//  3. It keeps the retry loop fully contained in this package
type Outcome struct {
	// Status classifies the attempt.
	Status Status

	// Downloaded is true only when a new file was written.
	Downloaded bool

	// Bytes is the number of body bytes written, for downloaded
	// outcomes.
	Bytes int64

	// Err is the final failure after retries, for error outcomes.
	Err error
}

// Tag renders the outcome for log lines: the bare status for successes
// and skips, "error: <message>" for failures.
func (o Outcome) Tag() string {
	if o.Status == StatusError && o.Err != nil {
		return fmt.Sprintf("error: %v", o.Err)
	}
	return string(o.Status)
}

// Download fetches rawURL into dest. It never returns an error; every
// result, including terminal failure after retries, is an Outcome.
//
// An existing dest short-circuits to an exists outcome with no network
// call, which is what makes interrupted runs resumable. Dry-run mode
// short-circuits next. Otherwise the body streams to dest plus a ".part"
// suffix and is renamed into place only when fully written, so dest
// never holds a partial file, even on a crash mid-transfer.
func (c *Client) Download(ctx context.Context, rawURL, dest string) Outcome {
	if _, err := os.Stat(dest); err == nil {
		return Outcome{Status: StatusExists}
	}
	if c.dryRun {
		return Outcome{Status: StatusDryRun}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Outcome{Status: StatusError, Err: fmt.Errorf("failed to create directory: %w", err)}
	}
	tmp := dest + partSuffix

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		written, err := c.transfer(ctx, rawURL, tmp, dest)
		if err == nil {
			return Outcome{Status: StatusDownloaded, Downloaded: true, Bytes: written}
		}
		lastErr = err

		if attempt < c.retries {
			if err := c.sleep(ctx, c.backoff<<attempt); err != nil {
				break
			}
		}
	}
	return Outcome{Status: StatusError, Err: lastErr}
}

// transfer performs one download attempt: GET, stream to the temporary
// path, rename into place. Any failure removes the partial file
// best-effort so a retry starts clean.
func (c *Client) transfer(ctx context.Context, rawURL, tmp, dest string) (int64, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.CopyBuffer(out, resp.Body, make([]byte, c.chunkSize))
	if err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to finalize download: %w", err)
	}
	return written, nil
}
