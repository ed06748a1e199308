// Package sanitize derives filesystem-safe local names from page titles
// and download URLs. Slugs are lowercase, hyphenated, and restricted to
// a small character set that is legal on every mainstream filesystem, so
// a category heading or a decoded URL basename can be used directly as a
// directory or file name.
package sanitize
