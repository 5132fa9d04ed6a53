// Package main provides the entry point for the ChoopScoop CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ChoopScoop.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "choopscoop",
		Short: "Website tag coverage auditing tool",
		Long: `ChoopScoop audits websites for marketing and analytics tag coverage.

It crawls a site with a headless Chrome browser, classifies each
rendered page against a catalog of tag managers, analytics snippets and
advertising pixels, and reports per-tag page coverage. Interrupted
audits resume from where they left off.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
