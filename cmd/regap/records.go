package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/complykit/regap/internal/storage"
	"github.com/spf13/cobra"
)

var recordsRunID string

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsShowCmd)

	recordsCmd.Flags().StringVar(&recordsRunID, "run", "", "Only records from a specific run")
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored analysis records",
	Long: `List the stored regulation analysis records, most recent first.

Examples:
  regap records
  regap records --run 20260825_093015_1a2b3c4d
  regap records show <id>`,
	RunE: runRecordsList,
}

// RecordSummary describes one record in list output.
type RecordSummary struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	File           string `json:"file"`
	Mandates       int    `json:"mandates"`
	ConceptRelease bool   `json:"concept_release"`
	AnalyzedAt     string `json:"analyzed_at"`
	RunID          string `json:"run_id"`
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	var records []storage.RegulationRecord
	var err error
	if recordsRunID != "" {
		records, err = db.ListRecordsByRun(recordsRunID)
	} else {
		records, err = db.ListRecords()
	}
	if err != nil {
		exitWithError(ExitError, "listing records: %v", err)
	}

	summaries := make([]RecordSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, RecordSummary{
			ID:             rec.ID,
			Title:          rec.Title,
			File:           rec.FileName,
			Mandates:       rec.MandateCount,
			ConceptRelease: rec.ConceptRelease,
			AnalyzedAt:     rec.AnalyzedAt.Format(time.RFC3339),
			RunID:          rec.RunID,
		})
	}

	if humanOutput {
		if len(records) == 0 {
			fmt.Println("No analysis records stored")
			return nil
		}
		fmt.Printf("%d record(s):\n\n", len(records))
		for _, rec := range records {
			label := fmt.Sprintf("%d mandates", rec.MandateCount)
			if rec.ConceptRelease {
				label = "concept release"
			}
			fmt.Printf("  %s  %s\n", rec.ID, truncateString(rec.Title, ListTitleMaxLen))
			fmt.Printf("%s%s, analyzed %s\n", strings.Repeat(" ", 4), label, rec.AnalyzedAt.Format("2006-01-02 15:04"))
		}
	} else {
		outputJSON(summaries)
	}

	return nil
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record in full",
	Long:  `Show a stored record in full: provenance, extracted mandates, and gap findings.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenDatabase(root)
	defer db.Close()

	id := args[0]
	rec, err := db.GetRecord(id)
	if err != nil {
		exitWithError(ExitError, "getting record: %v", err)
	}
	if rec == nil {
		exitWithError(ExitError, "record not found: %s", id)
	}

	if humanOutput {
		printRecordDetail(*rec)
	} else {
		outputJSON(rec)
	}

	return nil
}

func printRecordDetail(rec storage.RegulationRecord) {
	fmt.Println(rec.ID)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println()

	fmt.Printf("Title:     %s\n", rec.Title)
	fmt.Printf("File:      %s\n", rec.FileName)
	if rec.SourceURL != "" {
		fmt.Printf("Source:    %s\n", rec.SourceURL)
	}
	if rec.Date != "" {
		fmt.Printf("Date:      %s\n", rec.Date)
	}
	fmt.Printf("Analyzed:  %s\n", rec.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Run:       %s\n", rec.RunID)
	if rec.ConceptRelease {
		fmt.Println("Mandates:  0 (concept release)")
	} else {
		fmt.Printf("Mandates:  %d\n", rec.MandateCount)
	}

	fmt.Println()
	fmt.Println("Extracted mandates:")
	fmt.Println()
	fmt.Println(strings.TrimSpace(rec.MandatesText))

	fmt.Println()
	fmt.Println("Gap findings:")
	fmt.Println()
	fmt.Println(strings.TrimSpace(rec.FindingsText))
}
