// Package fetch performs the HTTP work of a mirror run: reading catalog
// pages as decoded text and streaming file downloads to disk.
//
// # Components
//
//   - Client: a configured HTTP front end shared by page fetches and
//     downloads
//   - Outcome: the tagged result of one download attempt
//
// Page fetches fail fast with an error; downloads never do. A download
// reports success, skip, or failure through an Outcome value so the
// orchestrator can keep walking the catalog after an item fails.
// Transient failures are retried with exponential backoff before they
// are downgraded to an error outcome.
//
// The Client owns no timing policy. Politeness pacing between requests
// belongs to the orchestrator; the Client only honors being invoked at
// the caller's pace.
package fetch
