package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrInvalidIndexURL is returned when the index URL is empty, not
	// absolute, or uses a scheme other than http or https.
	ErrInvalidIndexURL = errors.New("invalid index URL: must be an absolute http(s) URL")

	// ErrNoOutputDir is returned when no output directory is specified.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidPrefix is returned when the catalog prefix is not an
	// absolute, non-root URL path such as "/midis".
	ErrInvalidPrefix = errors.New("invalid catalog prefix: must start with '/' and not be '/'")

	// ErrNoExtensions is returned when the extension list is empty.
	// Without extensions no link on a category page can be recognized
	// as a downloadable file.
	ErrNoExtensions = errors.New("no file extensions specified")

	// ErrInvalidExtensions is returned when an extension entry is empty
	// or whitespace. An empty alternative would make every URL ending
	// in a bare dot match.
	ErrInvalidExtensions = errors.New("invalid file extensions: entries must be non-empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidJitter is returned when the politeness jitter is negative.
	// Use 0 for a fixed delay with no random addition.
	ErrInvalidJitter = errors.New("invalid jitter: must be non-negative")

	// ErrInvalidRetries is returned when the retry count is negative.
	// Use 0 to attempt each download exactly once.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidBackoff is returned when the retry backoff is negative.
	// Use 0 to retry immediately.
	ErrInvalidBackoff = errors.New("invalid backoff: must be non-negative")

	// ErrInvalidLimit is returned when the category/file limit is negative.
	// Use 0 to walk the whole catalog.
	ErrInvalidLimit = errors.New("invalid limit: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// A worker count of zero would mean no downloads at all.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")
)
