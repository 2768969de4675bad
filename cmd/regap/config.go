package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/complykit/regap/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set workspace configuration values",
	Long: `Get or set workspace configuration values.

Usage:
  regap config                       # Show all config
  regap config docs-dir              # Get specific value
  regap config docs-dir ~/policies   # Set value
  regap config workers 8             # Set gap-analysis concurrency

Keys:
  docs-dir     Directory of internal policy PDFs
  rules-dir    Directory of regulation PDFs
  reports-dir  Directory where reports are written
  embed-model  Embedding model override (default all-minilm:l6-v2)
  workers      Concurrent gap-analysis workers (1-16)
  top-k        Policy chunks retrieved per mandate`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// WorkspaceConfigResponse is the JSON response for 'regap config'.
type WorkspaceConfigResponse struct {
	DocsDir    string `json:"docs_dir"`
	RulesDir   string `json:"rules_dir"`
	ReportsDir string `json:"reports_dir"`
	EmbedModel string `json:"embed_model,omitempty"`
	Workers    int    `json:"workers"`
	TopK       int    `json:"top_k"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("docs-dir:    %s\n", cfg.DocsDir)
			fmt.Printf("rules-dir:   %s\n", cfg.RulesDir)
			fmt.Printf("reports-dir: %s\n", cfg.ReportsDir)
			fmt.Printf("embed-model: %s\n", cfg.EmbedModel)
			fmt.Printf("workers:     %d\n", cfg.Workers)
			fmt.Printf("top-k:       %d\n", cfg.TopK)
		} else {
			outputJSON(WorkspaceConfigResponse{
				DocsDir:    cfg.DocsDir,
				RulesDir:   cfg.RulesDir,
				ReportsDir: cfg.ReportsDir,
				EmbedModel: cfg.EmbedModel,
				Workers:    cfg.Workers,
				TopK:       cfg.TopK,
			})
		}
		return nil
	}

	key := args[0]
	normalizedKey := normalizeKey(key)

	// One arg: get specific value
	if len(args) == 1 {
		switch normalizedKey {
		case "docs-dir":
			printConfigValue("docs_dir", cfg.DocsDir)
		case "rules-dir":
			printConfigValue("rules_dir", cfg.RulesDir)
		case "reports-dir":
			printConfigValue("reports_dir", cfg.ReportsDir)
		case "embed-model":
			printConfigValue("embed_model", cfg.EmbedModel)
		case "workers":
			printConfigValue("workers", strconv.Itoa(cfg.Workers))
		case "top-k":
			printConfigValue("top_k", strconv.Itoa(cfg.TopK))
		default:
			exitWithError(ExitError, "unknown configuration key: %s", key)
		}
		return nil
	}

	// Two args: set value
	value := args[1]

	switch normalizedKey {
	case "docs-dir", "rules-dir", "reports-dir":
		resolved := config.Resolve(root, value)
		if err := config.ValidateDir(resolved); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		switch normalizedKey {
		case "docs-dir":
			cfg.DocsDir = value
		case "rules-dir":
			cfg.RulesDir = value
		case "reports-dir":
			cfg.ReportsDir = value
		}

	case "embed-model":
		cfg.EmbedModel = value

	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > config.MaxWorkers {
			exitWithError(ExitError, "workers must be an integer between 1 and %d", config.MaxWorkers)
		}
		cfg.Workers = n

	case "top-k":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			exitWithError(ExitError, "top-k must be a positive integer")
		}
		cfg.TopK = n

	default:
		exitWithError(ExitError, "unknown configuration key: %s", key)
	}

	// Save config
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	// Output success
	if humanOutput {
		fmt.Printf("Updated %s to %s\n", normalizedKey, value)
	} else {
		outputJSON(UpdateResponse{
			Status: "updated",
			Key:    normalizedKey,
			Value:  value,
		})
	}

	return nil
}

// printConfigValue prints a single config value in the active output format.
func printConfigValue(jsonKey, value string) {
	if humanOutput {
		fmt.Println(value)
	} else {
		outputJSON(map[string]string{jsonKey: value})
	}
}

// normalizeKey converts key formats (docs-dir, docs_dir, DocsDir) to a
// consistent format.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}
