package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"midimirror/internal/config"
	"midimirror/internal/database"
	"midimirror/internal/report"
)

// NewHistoryCmd creates the history command.
// This command reads past mirror runs from the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past mirror runs",
		Long: `History lists mirror runs recorded in the local database.

Every run is stored with its totals and the outcome of each file,
including runs that were interrupted or ended with failures. The
listing shows one line per run; pick a run ID for the full
per-category report.

Examples:
  # List recent runs
  midimirror history

  # Show the full report for run 3
  midimirror history --run 3

  # Show run 3 as JSON
  midimirror history --run 3 --json

  # List only the files that failed in run 3
  midimirror history --run 3 --status error

  # Show the most recent run as JSON
  midimirror history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0,
		"Show the run with this ID (use the listing to find IDs)")
	cmd.Flags().IntP("limit", "l", 20,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the selected run as JSON")
	cmd.Flags().StringP("status", "s", "",
		"With --run: list only files with this outcome (downloaded, exists, dry-run, error)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return err
	}

	if status != "" && runID == 0 {
		return errors.New("--status requires --run (pick a run from the listing first)")
	}

	// Use XDG data directory for database
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case runID > 0 && status != "":
		return listRunDownloads(ctx, db, runID, status)
	case runID > 0:
		return showRun(ctx, db, runID, jsonOutput)
	case jsonOutput:
		return showLatestRun(ctx, db)
	default:
		return listRuns(ctx, db, limit)
	}
}

// listRuns prints one line per recorded run, most recent first.
func listRuns(ctx context.Context, db *database.RunDB, limit int) error {
	records, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No mirror runs recorded yet.")
		fmt.Println("\nUse 'midimirror mirror' to mirror a catalog.")
		return nil
	}

	fmt.Printf("Recorded runs (%d):\n\n", len(records))
	fmt.Printf("  %-6s  %-20s  %-18s  %s\n", "ID", "Started", "Seen/DL/Skip/Fail", "Output")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, rec := range records {
		fmt.Printf("  %-6d  %-20s  %-18s  %s%s\n",
			rec.ID,
			rec.Started.Format("2006-01-02 15:04:05"),
			formatTotals(rec),
			rec.OutputDir,
			dryRunMarker(rec.DryRun),
		)
	}

	fmt.Println("\nUse 'midimirror history --run <id>' to see the full report of a run.")
	fmt.Println("Use 'midimirror history --run <id> --status error' to list its failed files.")

	return nil
}

// formatTotals renders a run's counters as seen/downloaded/skipped/failed.
func formatTotals(rec database.RunRecord) string {
	return fmt.Sprintf("%d/%d/%d/%d", rec.Seen, rec.Downloaded, rec.Skipped, rec.Failed)
}

// dryRunMarker flags preview runs in the listing.
func dryRunMarker(dryRun bool) string {
	if dryRun {
		return "  (dry-run)"
	}
	return ""
}

// showRun prints the stored report for one run.
func showRun(ctx context.Context, db *database.RunDB, runID int64, jsonOutput bool) error {
	summary, err := db.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", runID, err)
	}
	if summary == nil {
		return fmt.Errorf("no run with ID %d (use 'midimirror history' to list runs)", runID)
	}

	if jsonOutput {
		_, err := report.NewJSONWriter(os.Stdout, report.WithPrettyPrint()).Write(summary)
		return err
	}

	_, err = report.NewTextWriter(os.Stdout, report.WithShowFiles(true)).Write(summary)
	return err
}

// showLatestRun prints the most recent run as JSON.
func showLatestRun(ctx context.Context, db *database.RunDB) error {
	summary, err := db.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to load the latest run: %w", err)
	}
	if summary == nil {
		return errors.New("no mirror runs recorded yet")
	}

	_, err = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint()).Write(summary)
	return err
}

// listRunDownloads prints the file records of a run with one outcome.
func listRunDownloads(ctx context.Context, db *database.RunDB, runID int64, status string) error {
	downloads, err := db.ListDownloads(ctx, runID, status)
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}

	if len(downloads) == 0 {
		fmt.Printf("No %s files recorded for run %d.\n", status, runID)
		return nil
	}

	fmt.Printf("Run %d: %d %s file(s)\n\n", runID, len(downloads), status)
	for _, dl := range downloads {
		fmt.Printf("  [%s] %s -> %s\n", dl.Category, dl.Title, dl.Dest)
		if dl.Error != "" {
			fmt.Printf("        %s\n", dl.Error)
		}
	}

	return nil
}
