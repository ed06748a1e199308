// Package main provides the entry point for the midimirror CLI.
//
// midimirror mirrors small two-level MIDI catalogs: an index page links
// category pages, and each category page links the downloadable files.
//
// Usage:
//
//	midimirror mirror [index-url]
//	midimirror history
//
// See --help for all available options.
package main

// main is the entry point for midimirror.
func main() {
	Execute()
}
