package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"midimirror/internal/model"
)

// RunDB provides SQLite-based storage for mirror run history.
// It manages connection pooling and provides methods for recording and
// querying past runs.
//
// Design decision: We use a single database file for all runs rather
// than one file per run. This keeps "what changed since last time"
// queries trivial and makes backup a single-file copy.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "midimirror.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store one row per mirror invocation
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		index_url TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		started TEXT NOT NULL,
		finished TEXT NOT NULL,
		seen INTEGER NOT NULL DEFAULT 0,
		downloaded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- Downloads store one row per file outcome, linked to a run
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		dest TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		bytes INTEGER NOT NULL DEFAULT 0,
		sha256 TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);
	CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun records a completed run and all of its file outcomes.
// It returns the database ID assigned to the run.
//
// The full summary is stored as JSON alongside the queryable columns so
// future schema additions never lose information recorded by older
// binaries.
func (rdb *RunDB) SaveRun(ctx context.Context, summary *model.RunSummary) (int64, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run summary: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (index_url, output_dir, dry_run, started, finished, seen, downloaded, skipped, failed, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.IndexURL,
		summary.OutputDir,
		boolToInt(summary.DryRun),
		summary.Started.UTC().Format(time.RFC3339Nano),
		summary.Finished.UTC().Format(time.RFC3339Nano),
		summary.Seen,
		summary.Downloaded,
		summary.Skipped,
		summary.Failed,
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, cat := range summary.Categories {
		for _, file := range cat.Files {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO downloads (run_id, category, title, url, dest, status, error, bytes, sha256)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				runID,
				cat.Name,
				file.Title,
				file.URL,
				file.Dest,
				file.Status,
				file.Error,
				file.Bytes,
				file.SHA256,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert download record: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunRecord contains summary information about a stored run.
// This is used for displaying run history without loading the full
// summary JSON.
type RunRecord struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// IndexURL is the catalog index the run started from.
	IndexURL string

	// OutputDir is the output root files were mirrored into.
	OutputDir string

	// DryRun marks preview runs that performed no downloads.
	DryRun bool

	// Started and Finished bound the run in wall-clock time.
	Started  time.Time
	Finished time.Time

	// Seen, Downloaded, Skipped, and Failed are the run totals.
	Seen       int
	Downloaded int
	Skipped    int
	Failed     int
}

// ListRuns returns stored runs, most recent first.
// A limit of 0 returns all runs.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, index_url, output_dir, dry_run, started, finished, seen, downloaded, skipped, failed
	FROM runs
	ORDER BY id DESC
	`
	args := make([]interface{}, 0)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var rec RunRecord
		var dryRun int
		var started, finished string

		err := rows.Scan(
			&rec.ID,
			&rec.IndexURL,
			&rec.OutputDir,
			&dryRun,
			&started,
			&finished,
			&rec.Seen,
			&rec.Downloaded,
			&rec.Skipped,
			&rec.Failed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.DryRun = dryRun != 0
		rec.Started = parseTimestamp(started)
		rec.Finished = parseTimestamp(finished)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetRun retrieves the full summary of a run by its database ID.
// It returns nil without error when the run does not exist.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.RunSummary, error) {
	query := `
	SELECT summary_json FROM runs
	WHERE id = ?
	`

	var summaryJSON string
	err := rdb.db.QueryRowContext(ctx, query, id).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var summary model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return &summary, nil
}

// LatestRun retrieves the most recently stored run summary.
// It returns nil without error when no runs are stored.
func (rdb *RunDB) LatestRun(ctx context.Context) (*model.RunSummary, error) {
	query := `
	SELECT summary_json FROM runs
	ORDER BY id DESC
	LIMIT 1
	`

	var summaryJSON string
	err := rdb.db.QueryRowContext(ctx, query).Scan(&summaryJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var summary model.RunSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}

	return &summary, nil
}

// DownloadRecord represents a stored file outcome.
type DownloadRecord struct {
	ID       int64
	RunID    int64
	Category string
	Title    string
	URL      string
	Dest     string
	Status   string
	Error    string
	Bytes    int64
	SHA256   string
}

// ListDownloads returns the file outcomes recorded for a run, in the
// order they were processed. An optional status filters the results.
func (rdb *RunDB) ListDownloads(ctx context.Context, runID int64, status string) ([]DownloadRecord, error) {
	query := `
	SELECT id, run_id, category, title, url, dest, status, error, bytes, sha256
	FROM downloads
	WHERE run_id = ?
	`
	args := []interface{}{runID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY id"

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var results []DownloadRecord
	for rows.Next() {
		var rec DownloadRecord
		var errMsg, sha sql.NullString

		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Category,
			&rec.Title,
			&rec.URL,
			&rec.Dest,
			&rec.Status,
			&errMsg,
			&rec.Bytes,
			&sha,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}

		rec.Error = errMsg.String
		rec.SHA256 = sha.String
		results = append(results, rec)
	}

	return results, rows.Err()
}

// boolToInt converts a bool to the 0/1 representation SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // RFC3339 with nanoseconds (our insert format)
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
