package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to keep the mirror polite toward the catalog
// server while still finishing a full crawl in reasonable time.
const (
	// DefaultIndexURL is the catalog index page the mirror starts from.
	// It lists one link per category; each category page lists the
	// downloadable files.
	DefaultIndexURL = "https://animezen.net/midis"

	// DefaultOutputDir is the local root directory files are mirrored
	// into. Each category becomes a subdirectory named after its slug.
	DefaultOutputDir = "midis"

	// DefaultCatalogPrefix is the URL path prefix that identifies
	// category pages on the index. Links outside this prefix are
	// ignored.
	DefaultCatalogPrefix = "/midis"

	// DefaultDelay is the base pause between consecutive requests.
	// 400ms keeps the crawl polite without stretching a full mirror of
	// a few thousand files into hours.
	DefaultDelay = 400 * time.Millisecond

	// DefaultJitter is the maximum random addition to DefaultDelay.
	// Randomizing the pause avoids a fixed request cadence that server
	// operators may mistake for abusive automation.
	DefaultJitter = 200 * time.Millisecond

	// DefaultTimeout is the per-request timeout. Catalog pages and the
	// files themselves are small, so 30 seconds is generous even on
	// slow links.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the number of additional download attempts
	// after the first one fails. Two retries recover from transient
	// network errors without hammering a server that is really down.
	DefaultRetries = 2

	// DefaultBackoff is the base wait before a retry. The actual wait
	// doubles with each failed attempt (1s, 2s, 4s, ...).
	DefaultBackoff = 1 * time.Second

	// DefaultUserAgent identifies the mirror in HTTP requests.
	// A descriptive User-Agent lets catalog operators recognize the
	// traffic and contact the project if it misbehaves.
	DefaultUserAgent = "midimirror/1.0 (+https://animezen.net)"

	// DefaultWorkers is the number of concurrent downloads within a
	// category. 1 preserves strict request ordering and the politeness
	// delay between every request; higher values trade politeness for
	// throughput on mirrors the operator controls.
	DefaultWorkers = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "midimirror"
)

// DefaultExtensions are the file extensions (without the leading dot)
// treated as downloadable catalog files.
var DefaultExtensions = []string{"mid", "midi"}

// Config holds all configuration options for the mirror.
// This struct is designed to be populated from CLI flags and an
// optional config file, then passed through the application via
// dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// IndexURL is the catalog index page to start from.
	// Category links are resolved against this URL.
	IndexURL string

	// OutputDir is the local root directory files are mirrored into.
	// It is created on demand; each category gets a slug-named
	// subdirectory beneath it.
	OutputDir string

	// CatalogPrefix is the URL path prefix identifying category pages.
	// Only index links under this prefix are treated as categories.
	CatalogPrefix string

	// Extensions are the file extensions (without the leading dot)
	// treated as downloadable files on category pages.
	Extensions []string

	// Delay is the base pause inserted before each category fetch and
	// after each file download. This is a politeness setting; lowering
	// it shifts load onto the catalog server.
	Delay time.Duration

	// Jitter is the maximum random duration added to Delay.
	// The actual pause is Delay plus a uniform random value in
	// [0, Jitter).
	Jitter time.Duration

	// Timeout is the per-request timeout for both page fetches and
	// file downloads.
	Timeout time.Duration

	// Retries is the number of additional attempts after a download
	// fails. Page fetches are not retried; a category that fails is
	// reported and skipped.
	Retries int

	// Backoff is the base wait before retrying a failed download.
	// The wait doubles with each failed attempt.
	Backoff time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Limit caps how many categories are walked and how many files are
	// taken per category. A value of 0 means no limit. This exists for
	// smoke-testing a mirror setup without pulling the whole catalog.
	Limit int

	// Workers is the number of concurrent downloads within a category.
	// 1 (the default) keeps the crawl strictly sequential.
	Workers int

	// DryRun previews the crawl without writing any files.
	// Pages are still fetched so the would-be downloads can be listed.
	DryRun bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .midimirror in the current
	// directory, the XDG config directory, and the home directory.
	ConfigFilePath string

	// ReportFile is the output file path for the Markdown run report.
	// When empty, no report is written.
	ReportFile string

	// DBDir is the directory path for storing the SQLite run-history
	// database. Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to record run history in the
	// database. Disabled with the --no-db flag.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., delay, retries).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		IndexURL:      DefaultIndexURL,
		OutputDir:     DefaultOutputDir,
		CatalogPrefix: DefaultCatalogPrefix,
		Extensions:    append([]string(nil), DefaultExtensions...),
		Delay:         DefaultDelay,
		Jitter:        DefaultJitter,
		Timeout:       DefaultTimeout,
		Retries:       DefaultRetries,
		Backoff:       DefaultBackoff,
		UserAgent:     DefaultUserAgent,
		Workers:       DefaultWorkers,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for the mirror.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/midimirror
// On macOS: ~/Library/Application Support/midimirror
// On Windows: %LOCALAPPDATA%\midimirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the mirror.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/midimirror
// On macOS: ~/Library/Application Support/midimirror
// On Windows: %APPDATA%\midimirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// The index URL anchors the whole crawl and must be absolute,
	// otherwise relative catalog links cannot be resolved.
	u, err := url.Parse(c.IndexURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidIndexURL
	}

	// Output directory must be set; an empty path would scatter
	// category directories into the working directory root.
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}

	// The prefix must be a non-root absolute path so that category
	// names can be derived from the remainder after it.
	if !strings.HasPrefix(c.CatalogPrefix, "/") || c.CatalogPrefix == "/" {
		return ErrInvalidPrefix
	}

	// At least one extension is needed to recognize downloadable files
	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}
	for _, ext := range c.Extensions {
		if strings.TrimSpace(ext) == "" {
			return ErrInvalidExtensions
		}
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Delay and jitter must be non-negative
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Jitter < 0 {
		return ErrInvalidJitter
	}

	// Retries must be non-negative; 0 means a single attempt
	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	// Backoff must be non-negative
	if c.Backoff < 0 {
		return ErrInvalidBackoff
	}

	// Limit must be non-negative; 0 means no limit
	if c.Limit < 0 {
		return ErrInvalidLimit
	}

	// Workers must be positive; zero would mean no downloads
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	return nil
}
