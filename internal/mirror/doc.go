// Package mirror orchestrates a complete catalog mirror run.
//
// A run walks two levels of pages: the index page lists category pages,
// and each category page lists downloadable files. The Runner fetches
// the index, visits every category with a politeness pause between
// requests, downloads each file into a slug-named directory, and
// collects per-file outcomes into a model.RunSummary.
//
// Failures below the index level never abort the run: a category page
// that cannot be fetched is reported and skipped, and a file whose
// download fails after retries is counted and the crawl moves on.
// Only the index fetch is fatal, because without it there is nothing
// to walk.
package mirror
