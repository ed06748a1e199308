// Package catalog extracts category and file links from the two page
// shapes the mirror walks: an index page listing category ("series")
// pages, and category pages listing downloadable files.
//
// # Components
//
//   - Extractor: scans page markup for hrefs and applies the category
//     and file selection rules
//   - CategoryLink, FileLink: the immutable records handed to the
//     orchestrator
//
// Extraction is deliberately shallow: hrefs are selected by a path
// prefix (categories) or a filename-extension pattern (files), nothing
// more. The heuristics match the catalog sites this tool targets and
// are configurable, but this is not a general crawler.
package catalog
