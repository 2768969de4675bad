package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/complykit/regap/internal/config"
	"github.com/complykit/regap/internal/index"
	"github.com/complykit/regap/internal/pipeline"
	"github.com/complykit/regap/internal/report"
	"github.com/spf13/cobra"
)

var (
	analyzeTitle string
	analyzeURL   string
	analyzeDate  string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "Regulation title (defaults to a title derived from the file name)")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "Source URL of the regulation")
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "Publication date of the regulation")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <regulation.pdf>",
	Short: "Analyze one regulation against the policy index",
	Long: `Analyze a single regulation PDF against the internal policy index.

Extracts the regulation's mandates, audits each one against the indexed
policies, stores the resulting record, and writes a standalone report.

Requires a built policy index ('regap index build') and gateway
credentials for the generation model.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// AnalyzeResult is the response for the analyze command.
type AnalyzeResult struct {
	Status         string `json:"status"`
	RecordID       string `json:"record_id"`
	Title          string `json:"title"`
	File           string `json:"file"`
	Mandates       int    `json:"mandates"`
	ConceptRelease bool   `json:"concept_release"`
	ReportPath     string `json:"report_path"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	store, err := index.Load(config.StorePath(root))
	if err != nil {
		if errors.Is(err, index.ErrStoreNotFound) {
			exitWithError(ExitConfigError, "Policy index not found\n\nRun 'regap index build' first.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}

	client := mustGatewayClient()
	provider := newEmbeddingProvider(cfg)
	mustEmbeddingReady(ctx, provider)

	db := mustOpenDatabase(root)
	defer db.Close()

	pipe := newPipeline(root, cfg, client, provider, db, nil)

	meta := pipeline.AnalyzeMeta{
		Title: analyzeTitle,
		URL:   analyzeURL,
		Date:  analyzeDate,
		RunID: pipeline.NewRunID(time.Now()),
	}

	rec, err := pipe.Analyze(ctx, args[0], store, meta)
	if err != nil {
		exitWithError(ExitDataError, "analyzing %s: %v", args[0], err)
	}

	if err := db.SaveRecord(rec); err != nil {
		exitWithError(ExitError, "saving record: %v", err)
	}

	generatedAt := time.Now()
	run := report.RunInfo{RunID: meta.RunID, GeneratedAt: generatedAt}
	text, err := report.NewSynthesizer(client).Single(ctx, *rec, run)
	if err != nil {
		exitWithError(ExitError, "synthesizing report: %v", err)
	}
	reportPath, err := report.WriteSingle(cfg.ReportsPath(root), text, generatedAt)
	if err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}

	if humanOutput {
		fmt.Printf("Analyzed %s:\n", rec.FileName)
		fmt.Printf("  Title: %s\n", rec.Title)
		if rec.ConceptRelease {
			fmt.Printf("  Concept release: no actionable mandates\n")
		} else {
			fmt.Printf("  Mandates: %d\n", rec.MandateCount)
		}
		fmt.Printf("  Record: %s\n", rec.ID)
		fmt.Printf("  Report: %s\n", reportPath)
	} else {
		outputJSON(AnalyzeResult{
			Status:         "complete",
			RecordID:       rec.ID,
			Title:          rec.Title,
			File:           rec.FileName,
			Mandates:       rec.MandateCount,
			ConceptRelease: rec.ConceptRelease,
			ReportPath:     reportPath,
		})
	}

	return nil
}
