package main

import (
	"fmt"
	"os"

	"github.com/complykit/regap/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new regap workspace",
	Long: `Initialize a new regap workspace in the current directory.

Creates:
  .regap/
  ├── config.json     # Default config
  ├── store/          # Embedding index (built by 'regap index build')
  └── cache/          # Analysis database
  docs/               # Internal policy PDFs go here
  rules/              # Regulation PDFs go here
  reports/            # Synthesized reports land here`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	// Check if already initialized
	if config.IsWorkspace(root) {
		exitWithError(ExitError, "directory already contains a regap workspace")
	}

	// Create directory structure
	for _, dir := range []string{
		config.RegapPath(root),
		config.StorePath(root),
		config.CachePath(root),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", dir, err)
		}
	}

	// Create default config
	cfg := config.Default()
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "creating config.json: %v", err)
	}

	// Create the default document directories so users can drop PDFs
	// in right away.
	for _, dir := range []string{
		cfg.DocsPath(root),
		cfg.RulesPath(root),
		cfg.ReportsPath(root),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", dir, err)
		}
	}

	// Output success
	if humanOutput {
		fmt.Printf("Initialized regap workspace in %s\n", root)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Printf("  1. Copy internal policy PDFs into %s/\n", cfg.DocsDir)
		fmt.Printf("  2. Copy regulation PDFs into %s/\n", cfg.RulesDir)
		fmt.Println("  3. Run 'regap index build' to index the policies")
		fmt.Println("  4. Run 'regap run' to analyze the regulations")
	} else {
		outputJSON(StatusResponse{
			Status: "initialized",
			Path:   root,
		})
	}

	return nil
}
