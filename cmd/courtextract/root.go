// courtextract runs incident-date extraction from the command line.
//
// Usage:
//
//	courtextract extract --jurisdiction=orange complaint.pdf
//	courtextract jurisdictions
//	courtextract validate config/patterns/orange.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "courtextract",
	Short: "Extract incident dates from court documents",
	Long:  "courtextract applies per-jurisdiction pattern rules to court documents\nand reports the resolved dates with their provenance.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

var patternsDir string

func init() {
	rootCmd.PersistentFlags().StringVar(&patternsDir, "patterns", "config/patterns", "Directory of <jurisdiction>.yaml rule files")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(jurisdictionsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
