package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// recordSleeps returns a sleep hook that appends each requested pause
// instead of waiting.
func recordSleeps(slept *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	})
}

// TestClientDownload tests the download outcomes and filesystem
// discipline.
func TestClientDownload(t *testing.T) {
	t.Parallel()

	t.Run("streams to the destination through a part file", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("MThd midi bytes"))
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "songs", "theme.mid")
		outcome := NewClient(server.Client()).Download(context.Background(), server.URL+"/theme.mid", dest)

		if outcome.Status != StatusDownloaded || !outcome.Downloaded {
			t.Fatalf("expected a downloaded outcome, got %+v", outcome)
		}
		if outcome.Bytes != int64(len("MThd midi bytes")) {
			t.Errorf("expected %d bytes, got %d", len("MThd midi bytes"), outcome.Bytes)
		}

		content, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read destination: %v", err)
		}
		if string(content) != "MThd midi bytes" {
			t.Errorf("unexpected content %q", content)
		}
		if _, err := os.Stat(dest + ".part"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected the part file to be gone, got %v", err)
		}
	})

	t.Run("returns exists without a network call", func(t *testing.T) {
		t.Parallel()

		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.Write([]byte("fresh content"))
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "theme.mid")
		client := NewClient(server.Client())

		first := client.Download(context.Background(), server.URL, dest)
		if first.Status != StatusDownloaded {
			t.Fatalf("expected the first call to download, got %+v", first)
		}

		second := client.Download(context.Background(), server.URL, dest)
		if second.Status != StatusExists || second.Downloaded {
			t.Errorf("expected an exists outcome, got %+v", second)
		}
		if requests != 1 {
			t.Errorf("expected exactly one network transfer, got %d", requests)
		}

		content, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read destination: %v", err)
		}
		if string(content) != "fresh content" {
			t.Errorf("the second call modified the file: %q", content)
		}
	})

	t.Run("dry-run touches neither network nor disk", func(t *testing.T) {
		t.Parallel()

		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer server.Close()

		dest := filepath.Join(t.TempDir(), "theme.mid")
		outcome := NewClient(server.Client(), WithDryRun(true)).Download(context.Background(), server.URL, dest)

		if outcome.Status != StatusDryRun {
			t.Errorf("expected a dry-run outcome, got %+v", outcome)
		}
		if requests != 0 {
			t.Errorf("expected no requests, got %d", requests)
		}
		if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected no file, got %v", err)
		}
	})

	t.Run("retries with doubling backoff then succeeds", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts <= 2 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("finally"))
		}))
		defer server.Close()

		var slept []time.Duration
		client := NewClient(server.Client(),
			WithRetries(2),
			WithBackoff(50*time.Millisecond),
			recordSleeps(&slept),
		)

		dest := filepath.Join(t.TempDir(), "theme.mid")
		outcome := client.Download(context.Background(), server.URL, dest)

		if outcome.Status != StatusDownloaded {
			t.Fatalf("expected a downloaded outcome, got %+v", outcome)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}

		want := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}
		if len(slept) != len(want) {
			t.Fatalf("expected %d sleeps, got %v", len(want), slept)
		}
		for i := range want {
			if slept[i] != want[i] {
				t.Errorf("sleep %d: expected %v, got %v", i, want[i], slept[i])
			}
		}
	})

	t.Run("reports an error outcome after exhausting retries", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer server.Close()

		var slept []time.Duration
		client := NewClient(server.Client(), WithRetries(1), recordSleeps(&slept))

		dest := filepath.Join(t.TempDir(), "theme.mid")
		outcome := client.Download(context.Background(), server.URL, dest)

		if outcome.Status != StatusError || outcome.Err == nil {
			t.Fatalf("expected an error outcome, got %+v", outcome)
		}
		if !strings.HasPrefix(outcome.Tag(), "error: ") {
			t.Errorf("unexpected tag %q", outcome.Tag())
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
		if len(slept) != 1 {
			t.Errorf("expected 1 backoff sleep, got %v", slept)
		}
		if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected no file at the destination, got %v", err)
		}
	})

	t.Run("leaves nothing behind on a truncated stream", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "1000")
			w.Write([]byte("only a little"))
		}))
		defer server.Close()

		client := NewClient(server.Client(), WithRetries(0))
		dest := filepath.Join(t.TempDir(), "theme.mid")
		outcome := client.Download(context.Background(), server.URL, dest)

		if outcome.Status != StatusError {
			t.Fatalf("expected an error outcome, got %+v", outcome)
		}
		if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected no file at the final path, got %v", err)
		}
		if _, err := os.Stat(dest + ".part"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected the part file to be cleaned up, got %v", err)
		}
	})
}

// TestOutcomeTag tests log-line rendering of outcomes.
func TestOutcomeTag(t *testing.T) {
	t.Parallel()

	if got := (Outcome{Status: StatusExists}).Tag(); got != "exists" {
		t.Errorf("expected %q, got %q", "exists", got)
	}
	if got := (Outcome{Status: StatusError, Err: errors.New("boom")}).Tag(); got != "error: boom" {
		t.Errorf("expected %q, got %q", "error: boom", got)
	}
}
