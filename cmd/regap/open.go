package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/complykit/regap/internal/pdf"
	"github.com/spf13/cobra"
)

var openReport bool

func init() {
	openCmd.Flags().BoolVar(&openReport, "report", false, "Open the newest report instead of a regulation PDF")
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open [record-id]",
	Short: "Open a regulation PDF or the newest report",
	Long: `Open an analyzed regulation's PDF in the system viewer, looked up by
record ID, or the most recently written report with --report.

Examples:
  regap open 6a1f0c9e-...
  regap open --report`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

// OpenResult is the response for the open command.
type OpenResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

func runOpen(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	var path string
	if openReport {
		path = mustNewestReport(cfg.ReportsPath(root))
	} else {
		if len(args) == 0 {
			exitWithError(ExitError, "record ID required (or use --report)")
		}

		db := mustOpenDatabase(root)
		defer db.Close()

		rec, err := db.GetRecord(args[0])
		if err != nil {
			exitWithError(ExitError, "getting record: %v", err)
		}
		if rec == nil {
			exitWithError(ExitError, "record not found: %s", args[0])
		}
		path = filepath.Join(cfg.RulesPath(root), rec.FileName)
	}

	if err := pdf.OpenViewer(path); err != nil {
		exitWithError(ExitError, "opening %s: %v", path, err)
	}

	if humanOutput {
		fmt.Printf("Opening: %s\n", path)
	} else {
		outputJSON(OpenResult{
			Status: "opened",
			Path:   path,
		})
	}

	return nil
}

// mustNewestReport returns the most recently modified report artifact,
// exiting when none exist yet.
func mustNewestReport(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		exitWithError(ExitError, "reading reports directory: %v", err)
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = entry.Name()
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		exitWithError(ExitDataError, "No reports found in %s\n\nRun 'regap run' or 'regap report' first.", dir)
	}
	return filepath.Join(dir, newest)
}
