// Package model defines the record types a mirror run produces.
//
// This package contains the following main types:
//   - RunSummary: One complete mirror run with its totals
//   - CategoryResult: The outcome of walking one category page
//   - FileResult: The outcome of one file download attempt
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. Multiple packages (mirror, report, database)
// need these types, so centralizing them prevents import cycles.
package model
