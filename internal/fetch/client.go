package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"midimirror/internal/urlnorm"
)

// Default Client settings, applied by NewClient and overridable through
// options.
const (
	// DefaultUserAgent identifies the tool when no user agent is
	// configured.
	DefaultUserAgent = "midimirror/1.0"

	// DefaultRetries is the number of additional download attempts after
	// a failed one.
	DefaultRetries = 2

	// DefaultBackoff is the base delay before the first retry; it
	// doubles with every further attempt.
	DefaultBackoff = time.Second

	// DefaultChunkSize is the write granularity for streaming downloads.
	DefaultChunkSize = 64 * 1024

	// defaultTimeout bounds requests when no http.Client is supplied.
	defaultTimeout = 30 * time.Second
)

// acceptHeader favors HTML for page fetches while accepting anything,
// which is also fine for binary downloads.
const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Client issues the HTTP requests of a mirror run.
//
// Design decision: we take an external *http.Client rather than building
// one internally because:
//  1. Timeout and transport configuration belong to the caller
//  2. Tests can inject an httptest server's client
//  3. Connection pooling is shared between page fetches and downloads
type Client struct {
	// client is the underlying HTTP client, including the per-request
	// timeout.
	client *http.Client

	// userAgent is sent on every request.
	userAgent string

	// retries is the number of additional attempts after a failed
	// download.
	retries int

	// backoff is the base delay between download attempts; attempt n
	// waits backoff * 2^n.
	backoff time.Duration

	// chunkSize is the copy buffer size for streaming downloads.
	chunkSize int

	// dryRun suppresses network and filesystem work in Download.
	dryRun bool

	// sleep pauses between retry attempts. Tests replace it to verify
	// the backoff schedule without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetries sets how many additional attempts a failed download gets.
// Zero disables retrying; negative values are treated as zero.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = n
	}
}

// WithBackoff sets the base delay between download attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithChunkSize sets the copy buffer size for streaming downloads.
func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithDryRun makes Download report what it would do without issuing
// requests or writing files.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) {
		c.dryRun = dryRun
	}
}

// WithSleep replaces the pause between download retries.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient creates a Client around client, which carries the transport
// and timeout configuration. A nil client gets a plain one with a
// 30-second timeout.
func NewClient(client *http.Client, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		client:    client,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		chunkSize: DefaultChunkSize,
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Text fetches rawURL and returns the response body as UTF-8 text. It
// is a single attempt with no retry: page fetches happen early in a run
// where failure is surfaced to the caller instead of being retried.
// Responses outside the 2xx range are errors.
func (c *Client) Text(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return decodeBody(body, resp.Header.Get("Content-Type")), nil
}

// get issues one GET request with the identifying headers. The URL is
// normalized first, so raw spellings with spaces or stray punctuation
// (typically a hand-entered index URL) still form valid requests.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlnorm.Normalize(rawURL, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	return c.client.Do(req)
}

// decodeBody converts body to UTF-8 using the charset declared in the
// Content-Type header. Unknown charsets fall back to UTF-8, and
// undecodable bytes are replaced rather than failing the fetch.
func decodeBody(body []byte, contentType string) string {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = params["charset"]
		}
	}
	if charset == "" {
		charset = "utf-8"
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
