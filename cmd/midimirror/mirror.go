package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"midimirror/internal/catalog"
	"midimirror/internal/config"
	"midimirror/internal/database"
	"midimirror/internal/fetch"
	"midimirror/internal/log"
	"midimirror/internal/mirror"
	"midimirror/internal/model"
	"midimirror/internal/report"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [index-url]",
		Short: "Mirror a MIDI catalog to a local directory",
		Long: `Mirror walks a two-level MIDI catalog and downloads every file it links.

The index page lists category pages; each category page links the
downloadable files. Files land in <out>/<category>/<filename> with names
sanitized for the local filesystem. Existing files are never downloaded
again, so an interrupted mirror can simply be rerun.

Between requests the mirror pauses for a configurable delay plus random
jitter to stay polite to small hobbyist servers.

Examples:
  # Mirror the default catalog into ./midis
  midimirror mirror

  # Mirror another catalog into a chosen directory
  midimirror mirror https://example.org/midis -o archive

  # Preview without writing anything
  midimirror mirror --dry-run

  # Keep only the first 3 categories and 3 files per category
  midimirror mirror --limit 3

  # Hurry up: 4 parallel downloads, shorter pauses
  midimirror mirror --workers 4 --delay 200ms --jitter 100ms

  # Write a Markdown report of the run
  midimirror mirror --report run.md

Configuration file (.midimirror) example:
  index_url: https://example.org/midis
  output_dir: archive
  delay: 500ms
  jitter: 250ms
  user_agent: "archive-mirror/1.0 (contact: admin@example.org)"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMirrorCmd,
	}

	// Target and layout flags
	cmd.Flags().StringP("out", "o", config.DefaultOutputDir,
		"Directory that receives the mirrored files")
	cmd.Flags().String("prefix", config.DefaultCatalogPrefix,
		"Path prefix category links share on the index page")
	cmd.Flags().StringSlice("ext", config.DefaultExtensions,
		"Downloadable file extensions")

	// Politeness flags
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Base pause between requests")
	cmd.Flags().Duration("jitter", config.DefaultJitter,
		"Random extra pause added to the delay")

	// Transfer flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Additional attempts for a failed download")
	cmd.Flags().Duration("backoff", config.DefaultBackoff,
		"Base wait before a retry; doubles with each attempt")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Parallel downloads within a category (1 = strictly sequential)")

	// Run scope flags
	cmd.Flags().IntP("limit", "l", 0,
		"Process at most this many categories and files per category (0 = no limit)")
	cmd.Flags().BoolP("dry-run", "n", false,
		"Report what would be downloaded without writing anything")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .midimirror in current or home directory)")

	// Run record flags
	cmd.Flags().String("report", "",
		"Write a run report to this file (.md, .json, or plain text by extension)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger := log.New(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runMirror(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the command's flags and argument.
// Settings apply lowest to highest: built-in defaults, then the
// configuration file, then the index argument and explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Get positional argument (index URL)
	if len(args) > 0 {
		cfg.IndexURL = args[0]
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags copies explicitly set flags onto the configuration. Flags
// are read only when changed, so configuration file settings are not
// clobbered by untouched flag defaults.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("out") {
		if cfg.OutputDir, err = flags.GetString("out"); err != nil {
			return err
		}
	}
	if flags.Changed("prefix") {
		if cfg.CatalogPrefix, err = flags.GetString("prefix"); err != nil {
			return err
		}
	}
	if flags.Changed("ext") {
		if cfg.Extensions, err = flags.GetStringSlice("ext"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("jitter") {
		if cfg.Jitter, err = flags.GetDuration("jitter"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("retries") {
		if cfg.Retries, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if flags.Changed("backoff") {
		if cfg.Backoff, err = flags.GetDuration("backoff"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
	}
	if flags.Changed("limit") {
		if cfg.Limit, err = flags.GetInt("limit"); err != nil {
			return err
		}
	}
	if flags.Changed("dry-run") {
		if cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
			return err
		}
	}
	if flags.Changed("report") {
		if cfg.ReportFile, err = flags.GetString("report"); err != nil {
			return err
		}
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noDB

	return nil
}

// runMirror executes the mirror run.
func runMirror(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting mirror",
		"indexURL", cfg.IndexURL,
		"outputDir", cfg.OutputDir,
		"workers", cfg.Workers,
		"dryRun", cfg.DryRun,
	)

	// Open the history database if saving is enabled. History is
	// observational: a database that cannot be opened downgrades the
	// run to unrecorded instead of failing it.
	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			logger.Info("database opened", "dir", cfg.DBDir)
		}
	}

	client := fetch.NewClient(
		&http.Client{Timeout: cfg.Timeout},
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithRetries(cfg.Retries),
		fetch.WithBackoff(cfg.Backoff),
		fetch.WithDryRun(cfg.DryRun),
	)

	extractor, err := catalog.NewExtractor(cfg.IndexURL, cfg.CatalogPrefix, cfg.Extensions)
	if err != nil {
		return fmt.Errorf("failed to prepare link extraction: %w", err)
	}

	runner := mirror.New(cfg, client, extractor,
		mirror.WithOutput(cmd.OutOrStdout()),
		mirror.WithLogger(logger),
	)

	summary, runErr := runner.Run(ctx)

	// An interrupted or failed run is still worth recording and
	// reporting; its partial counters tell the user where it stopped.
	if err := saveRunSummary(db, summary, logger); err != nil {
		logger.Error("failed to save run history", "error", err)
	}
	if err := writeReport(cfg, summary); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	return runErr
}

// saveRunSummary records the run in the history database. If db is nil,
// this function is a no-op. Persistence runs on its own context so a
// canceled run is still recorded.
func saveRunSummary(db *database.RunDB, summary *model.RunSummary, logger *slog.Logger) error {
	if db == nil || summary == nil {
		return nil
	}

	id, err := db.SaveRun(context.Background(), summary)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("run recorded", "id", id)
	return nil
}

// writeReport writes the run report when a report file is configured.
// The file extension picks the format: Markdown for .md, JSON for
// .json, a plain text report otherwise.
func writeReport(cfg *config.Config, summary *model.RunSummary) error {
	if cfg.ReportFile == "" || summary == nil {
		return nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(cfg.ReportFile)) {
	case ".md", ".markdown":
		_, err = report.NewMarkdownWriter(f).Write(summary)
	case ".json":
		_, err = report.NewJSONWriter(f, report.WithPrettyPrint()).Write(summary)
	default:
		_, err = report.NewTextWriter(f, report.WithShowFiles(true)).Write(summary)
	}
	return err
}
