package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can express durations as
// human-readable strings such as "400ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler using time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// File represents the structure of the .midimirror configuration file.
// Every field is optional; absent fields leave the corresponding Config
// value untouched.
//
// Design decision: We use pointer fields for numeric settings because
// their zero values are meaningful overrides (retries: 0 means "one
// attempt", delay: 0 means "no pause"). A nil pointer means the file
// did not mention the setting at all.
type File struct {
	// IndexURL overrides the catalog index page to start from.
	IndexURL string `yaml:"index_url,omitempty"`

	// OutputDir overrides the local root directory files are mirrored into.
	OutputDir string `yaml:"output_dir,omitempty"`

	// Prefix overrides the URL path prefix identifying category pages.
	Prefix string `yaml:"prefix,omitempty"`

	// Extensions overrides the downloadable file extensions
	// (without the leading dot).
	Extensions []string `yaml:"extensions,omitempty"`

	// Delay overrides the base pause between requests.
	Delay *Duration `yaml:"delay,omitempty"`

	// Jitter overrides the maximum random addition to the pause.
	Jitter *Duration `yaml:"jitter,omitempty"`

	// Timeout overrides the per-request timeout.
	Timeout *Duration `yaml:"timeout,omitempty"`

	// Retries overrides the number of additional download attempts.
	Retries *int `yaml:"retries,omitempty"`

	// Backoff overrides the base wait before retrying a download.
	Backoff *Duration `yaml:"backoff,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Workers overrides the number of concurrent downloads.
	Workers *int `yaml:"workers,omitempty"`
}

// Apply overlays the file's settings onto cfg.
// Only settings present in the file are copied; everything else keeps
// its current value. CLI flags are applied after this, so flags win
// over the file and the file wins over built-in defaults.
func (f *File) Apply(cfg *Config) {
	if f.IndexURL != "" {
		cfg.IndexURL = f.IndexURL
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.Prefix != "" {
		cfg.CatalogPrefix = f.Prefix
	}
	if len(f.Extensions) > 0 {
		cfg.Extensions = append([]string(nil), f.Extensions...)
	}
	if f.Delay != nil {
		cfg.Delay = time.Duration(*f.Delay)
	}
	if f.Jitter != nil {
		cfg.Jitter = time.Duration(*f.Jitter)
	}
	if f.Timeout != nil {
		cfg.Timeout = time.Duration(*f.Timeout)
	}
	if f.Retries != nil {
		cfg.Retries = *f.Retries
	}
	if f.Backoff != nil {
		cfg.Backoff = time.Duration(*f.Backoff)
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
}
