package main

import (
	"context"
	"fmt"
	"time"

	"github.com/complykit/regap/internal/pipeline"
	"github.com/complykit/regap/internal/report"
	"github.com/complykit/regap/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reportRunID string
	reportAll   bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportRunID, "run", "", "Report on the records of a specific run")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Report on every stored record across runs")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Synthesize a consolidated report from stored records",
	Long: `Synthesize a consolidated compliance report from stored analysis
records, without re-running extraction or gap analysis.

By default the report covers the most recent run. Use --run to pick a
specific run, or --all to cover every stored record.`,
	RunE: runReport,
}

// ReportResult is the response for the report command.
type ReportResult struct {
	Status      string `json:"status"`
	RunID       string `json:"run_id"`
	Regulations int    `json:"regulations"`
	ReportPath  string `json:"report_path"`
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	client := mustGatewayClient()
	db := mustOpenDatabase(root)
	defer db.Close()

	records, runID := mustSelectRecords(db)

	pipe := pipeline.New(pipeline.Options{
		ReportsDir: cfg.ReportsPath(root),
		Client:     client,
	})

	_, path, err := pipe.SynthesizeReport(ctx, records, report.RunInfo{
		RunID:       runID,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		exitWithError(ExitError, "synthesizing report: %v", err)
	}

	if humanOutput {
		fmt.Printf("Report covers %d regulation(s) from run %s\n", len(records), runID)
		fmt.Printf("Written to %s\n", path)
	} else {
		outputJSON(ReportResult{
			Status:      "complete",
			RunID:       runID,
			Regulations: len(records),
			ReportPath:  path,
		})
	}

	return nil
}

// mustSelectRecords resolves the record set the report covers and a run
// label for the header, exiting when nothing has been analyzed yet.
func mustSelectRecords(db *storage.DB) ([]storage.RegulationRecord, string) {
	if reportAll {
		records, err := db.ListRecords()
		if err != nil {
			exitWithError(ExitError, "listing records: %v", err)
		}
		if len(records) == 0 {
			exitWithError(ExitDataError, "No analyzed regulations found\n\nRun 'regap run' or 'regap analyze' first.")
		}
		return records, "all-records"
	}

	runID := reportRunID
	if runID == "" {
		// Default to the most recent run
		latest, err := db.ListRecords()
		if err != nil {
			exitWithError(ExitError, "listing records: %v", err)
		}
		if len(latest) == 0 {
			exitWithError(ExitDataError, "No analyzed regulations found\n\nRun 'regap run' or 'regap analyze' first.")
		}
		runID = latest[0].RunID
	}

	records, err := db.ListRecordsByRun(runID)
	if err != nil {
		exitWithError(ExitError, "listing records for run %s: %v", runID, err)
	}
	if len(records) == 0 {
		exitWithError(ExitDataError, "No records found for run %s", runID)
	}
	return records, runID
}
