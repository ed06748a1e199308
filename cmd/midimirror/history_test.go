package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"midimirror/internal/database"
	"midimirror/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("unexpected Use: got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty Short description")
		}
	})

	t.Run("run flag has shorthand r", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("run")
		if flag == nil {
			t.Fatal("expected run flag")
		}
		if flag.Shorthand != "r" {
			t.Errorf("expected shorthand 'r', got %q", flag.Shorthand)
		}
		if flag.DefValue != "0" {
			t.Errorf("expected default '0', got %q", flag.DefValue)
		}
	})

	t.Run("limit flag defaults to 20", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "l" {
			t.Errorf("expected shorthand 'l', got %q", flag.Shorthand)
		}
		if flag.DefValue != "20" {
			t.Errorf("expected default '20', got %q", flag.DefValue)
		}
	})

	t.Run("json flag has shorthand j", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})

	t.Run("status flag has shorthand s", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("status")
		if flag == nil {
			t.Fatal("expected status flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("takes no arguments", func(t *testing.T) {
		t.Parallel()
		if cmd.Args == nil {
			t.Error("expected Args to be set")
		}
	})
}

// TestHistoryStatusRequiresRun tests flag validation. The check runs
// before any database access, so no database is needed here.
func TestHistoryStatusRequiresRun(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	_ = cmd.Flags().Set("status", "error")

	err := runHistoryCmd(cmd, nil)
	if err == nil {
		t.Fatal("expected error for --status without --run")
	}
	if !strings.Contains(err.Error(), "--status requires --run") {
		t.Errorf("unexpected error: %v", err)
	}
}

// openHistoryDB opens a run database in a temporary directory.
func openHistoryDB(t *testing.T) *database.RunDB {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// createFailedRunSummary returns a summary with one downloaded file and
// one failed file.
func createFailedRunSummary() *model.RunSummary {
	summary := createRunSummary()
	summary.Seen = 2
	summary.Failed = 1

	cat := &summary.Categories[0]
	cat.Seen = 2
	cat.Failed = 1
	cat.Files = append(cat.Files, model.FileResult{
		Title:  "green-bird.mid",
		URL:    "https://example.org/files/green-bird.mid",
		Dest:   "midis/cowboy-bebop/green-bird.mid",
		Status: "error",
		Error:  "failed to download: unexpected status 503 Service Unavailable",
	})

	return summary
}

// TestListRuns tests the run listing.
func TestListRuns(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	t.Run("prints a notice when nothing is recorded", func(t *testing.T) {
		db := openHistoryDB(t)

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := listRuns(context.Background(), db, 20)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("listRuns() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, "No mirror runs recorded yet.") {
			t.Errorf("expected the empty notice, got %q", output)
		}
		if !strings.Contains(output, "Use 'midimirror mirror' to mirror a catalog.") {
			t.Errorf("expected the hint line, got %q", output)
		}
	})

	t.Run("lists recorded runs", func(t *testing.T) {
		db := openHistoryDB(t)
		if _, err := db.SaveRun(context.Background(), createRunSummary()); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := listRuns(context.Background(), db, 20)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("listRuns() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		expectedStrings := []string{
			"Recorded runs (1)",
			"Seen/DL/Skip/Fail",
			"2026-04-02",
			"1/1/0/0",
			"midis",
			"Use 'midimirror history --run <id>'",
		}
		for _, expected := range expectedStrings {
			if !strings.Contains(output, expected) {
				t.Errorf("output missing expected string: %q", expected)
			}
		}
		if strings.Contains(output, "(dry-run)") {
			t.Error("expected no dry-run marker for a real run")
		}
	})

	t.Run("marks dry runs", func(t *testing.T) {
		summary := createRunSummary()
		summary.DryRun = true

		db := openHistoryDB(t)
		if _, err := db.SaveRun(context.Background(), summary); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := listRuns(context.Background(), db, 20)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("listRuns() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)

		if !strings.Contains(buf.String(), "(dry-run)") {
			t.Errorf("expected the dry-run marker, got %q", buf.String())
		}
	})
}

// TestShowRun tests the stored report output.
func TestShowRun(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	t.Run("prints the stored report as text", func(t *testing.T) {
		db := openHistoryDB(t)
		runID, err := db.SaveRun(context.Background(), createRunSummary())
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err = showRun(context.Background(), db, runID, false)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("showRun() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, "MIRROR RUN REPORT") {
			t.Errorf("expected the text report, got %q", output)
		}
		if !strings.Contains(output, "Cowboy Bebop") {
			t.Errorf("expected the category name, got %q", output)
		}
	})

	t.Run("prints the stored report as JSON", func(t *testing.T) {
		db := openHistoryDB(t)
		runID, err := db.SaveRun(context.Background(), createRunSummary())
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err = showRun(context.Background(), db, runID, true)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("showRun() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		if !strings.Contains(output, `"index_url"`) {
			t.Errorf("expected JSON output, got %q", output)
		}
		if !strings.Contains(output, "https://example.org/midis") {
			t.Errorf("expected the index URL, got %q", output)
		}
	})

	t.Run("fails for an unknown run", func(t *testing.T) {
		db := openHistoryDB(t)

		err := showRun(context.Background(), db, 4242, false)
		if err == nil {
			t.Fatal("expected error for unknown run ID")
		}
		if !strings.Contains(err.Error(), "no run with ID 4242") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestShowLatestRun tests the latest-run JSON output.
func TestShowLatestRun(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	t.Run("fails when nothing is recorded", func(t *testing.T) {
		db := openHistoryDB(t)

		err := showLatestRun(context.Background(), db)
		if err == nil {
			t.Fatal("expected error for empty database")
		}
		if !strings.Contains(err.Error(), "no mirror runs recorded yet") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("prints the most recent run", func(t *testing.T) {
		db := openHistoryDB(t)
		if _, err := db.SaveRun(context.Background(), createRunSummary()); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		latest := createRunSummary()
		latest.IndexURL = "https://example.org/vgm"
		if _, err := db.SaveRun(context.Background(), latest); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := showLatestRun(context.Background(), db)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("showLatestRun() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)

		if !strings.Contains(buf.String(), "https://example.org/vgm") {
			t.Errorf("expected the most recent run, got %q", buf.String())
		}
	})
}

// TestListRunDownloads tests the per-outcome file listing.
func TestListRunDownloads(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	t.Run("lists files with the requested outcome", func(t *testing.T) {
		db := openHistoryDB(t)
		runID, err := db.SaveRun(context.Background(), createFailedRunSummary())
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err = listRunDownloads(context.Background(), db, runID, "error")

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("listRunDownloads() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		output := buf.String()

		expectedStrings := []string{
			"1 error file(s)",
			"[Cowboy Bebop] green-bird.mid -> midis/cowboy-bebop/green-bird.mid",
			"unexpected status 503",
		}
		for _, expected := range expectedStrings {
			if !strings.Contains(output, expected) {
				t.Errorf("output missing expected string: %q", expected)
			}
		}
		if strings.Contains(output, "tank.mid") {
			t.Error("expected downloaded files to be filtered out")
		}
	})

	t.Run("prints a notice when nothing matches", func(t *testing.T) {
		db := openHistoryDB(t)
		runID, err := db.SaveRun(context.Background(), createFailedRunSummary())
		if err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err = listRunDownloads(context.Background(), db, runID, "dry-run")

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("listRunDownloads() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)

		if !strings.Contains(buf.String(), "No dry-run files recorded for run") {
			t.Errorf("expected the empty notice, got %q", buf.String())
		}
	})
}

// TestFormatTotals tests counter formatting.
func TestFormatTotals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  database.RunRecord
		want string
	}{
		{
			name: "formats all four counters",
			rec:  database.RunRecord{Seen: 12, Downloaded: 9, Skipped: 2, Failed: 1},
			want: "12/9/2/1",
		},
		{
			name: "formats zero counters",
			rec:  database.RunRecord{},
			want: "0/0/0/0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatTotals(tt.rec); got != tt.want {
				t.Errorf("formatTotals() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDryRunMarker tests the listing marker for preview runs.
func TestDryRunMarker(t *testing.T) {
	t.Parallel()

	if got := dryRunMarker(true); got != "  (dry-run)" {
		t.Errorf("dryRunMarker(true) = %q", got)
	}
	if got := dryRunMarker(false); got != "" {
		t.Errorf("dryRunMarker(false) = %q", got)
	}
}
