// Package cmd implements the ragline command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "ragline - retrieval-augmented question answering over your documents",
	Long: `ragline indexes text documents into per-project vector collections and
answers questions about them using retrieval-augmented generation.

Typical flow:

  ragline index ./docs --project myproject
  ragline ask "how does the billing retry work?" --project myproject`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
