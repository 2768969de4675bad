package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/complykit/regap/internal/index"
	"github.com/complykit/regap/internal/pipeline"
	"github.com/complykit/regap/internal/secgov"
	"github.com/spf13/cobra"
)

var (
	runWithFetch  bool
	runNoProgress bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runWithFetch, "fetch", false, "Poll the SEC rulemaking feed before analyzing")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Suppress progress output")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full gap analysis workflow",
	Long: `Run the full compliance gap analysis workflow:

  1. Load the policy index, building it first if none exists
  2. Optionally poll the SEC rulemaking feed for new rules (--fetch)
  3. Analyze every regulation PDF in the rules directory
  4. Store one record per regulation
  5. Synthesize the consolidated report

Requires Ollama for embeddings and gateway credentials for the
generation model.`,
	RunE: runRun,
}

// RunResponse is the response for the run command.
type RunResponse struct {
	Status     string   `json:"status"`
	RunID      string   `json:"run_id"`
	IndexBuilt bool     `json:"index_built"`
	NewRules   int      `json:"new_rules"`
	Analyzed   int      `json:"analyzed"`
	Skipped    []string `json:"skipped,omitempty"`
	ReportPath string   `json:"report_path"`
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	client := mustGatewayClient()
	provider := newEmbeddingProvider(cfg)
	mustEmbeddingReady(ctx, provider)

	db := mustOpenDatabase(root)
	defer db.Close()

	var monitor *secgov.Monitor
	if runWithFetch {
		monitor = mustMonitor(db, cfg.RulesPath(root))
	}

	pipe := newPipeline(root, cfg, client, provider, db, monitor)
	if humanOutput && !runNoProgress {
		pipe.SetProgressReporter(index.ProgressFunc(printProgress))
	}

	result, err := pipe.Run(ctx, pipeline.RunOptions{Fetch: runWithFetch})
	if humanOutput && !runNoProgress {
		clearProgress()
	}
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoReadableDocuments),
			errors.Is(err, pipeline.ErrNoRegulationPDFs),
			errors.Is(err, pipeline.ErrNoRegulationsAnalyzed):
			exitWithError(ExitDataError, "%v", err)
		case errors.Is(err, index.ErrStoreNotFound):
			exitWithError(ExitConfigError, "%v\n\nRun 'regap index build' first.", err)
		}
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Run %s complete:\n", result.RunID)
		if result.IndexBuilt {
			fmt.Println("  Policy index: built")
		}
		if runWithFetch {
			fmt.Printf("  New rules fetched: %d\n", result.NewRules)
		}
		fmt.Printf("  Regulations analyzed: %d\n", result.Analyzed)
		if len(result.Skipped) > 0 {
			fmt.Printf("  Skipped: %s\n", strings.Join(result.Skipped, ", "))
		}
		fmt.Printf("  Report: %s\n", result.ReportPath)
	} else {
		outputJSON(RunResponse{
			Status:     "complete",
			RunID:      result.RunID,
			IndexBuilt: result.IndexBuilt,
			NewRules:   result.NewRules,
			Analyzed:   result.Analyzed,
			Skipped:    result.Skipped,
			ReportPath: result.ReportPath,
		})
	}

	return nil
}
