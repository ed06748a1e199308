// Package main provides the entry point for the midimirror CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"midimirror/internal/mirror"
)

// NewRootCmd creates the root command for midimirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "midimirror",
		Short: "Polite mirror for small web MIDI catalogs",
		Long: `midimirror downloads the MIDI files of a two-level web catalog:
an index page that links category pages, each linking the files themselves.

Files land in <output>/<category>/<name> with filesystem-safe names.
Files that already exist locally are skipped, so rerunning the tool
resumes an interrupted mirror instead of starting over. Every run is
recorded in a local database; see 'midimirror history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. An index page without any category
// links exits with code 2 so wrapper scripts can tell an empty catalog
// from a hard failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, mirror.ErrNoCategories) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
