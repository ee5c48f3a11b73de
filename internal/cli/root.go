// Package cli implements the p4harmonize command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "p4harmonize",
		Short: "Mirror a source tree into a Perforce stream",
		Long: `p4harmonize makes a Perforce stream match a source tree (a git checkout
or a plain directory) by opening the minimum set of adds, edits, deletes
and case-only moves in a fresh workspace. Changes are staged, never
submitted.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
