// Package config provides configuration structures and utilities for
// the mirror. It defines crawl politeness settings, catalog selection
// options, and output preferences, with overrides loadable from a YAML
// configuration file.
package config
