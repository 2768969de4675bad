// Package main provides the regap CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/complykit/regap/internal/logger"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose enables debug-level diagnostics on stderr
var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "regap",
	Short: "Regulatory compliance gap analysis",
	Long: `regap checks new SEC regulations against your internal policy documents.

It chunks and embeds internal policy PDFs into a local vector index,
extracts binding mandates from each regulation with a generation model,
classifies the compliance gap for every mandate against retrieved policy
context, and writes a consolidated report for the legal team.

All commands output JSON by default for integration with other tools.
Use --human for human-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		logger.Init(level, os.Stderr)
	},
}

func init() {
	// Load .env if present (gateway credentials, service URLs).
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.Version = Version
}
