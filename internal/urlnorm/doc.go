// Package urlnorm turns hrefs found in catalog markup into absolute,
// canonically percent-encoded URLs.
//
// Catalog pages link to files with raw, browser-tolerant hrefs such as
// "/midis/Ah! My Goddess - Opening.mid". HTTP clients need those
// percent-encoded, and the same target can appear raw, partially encoded,
// or fully encoded across pages. Normalize produces one canonical form
// for every spelling: percent-decode each component, then re-encode it
// against a fixed allow-list. The transform is idempotent and total over
// arbitrary byte sequences; it never returns an error.
package urlnorm
