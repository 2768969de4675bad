package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download new SEC rules into the rules directory",
	Long: `Poll the SEC rulemaking activity feed and download rule PDFs that
have not been fetched before. Downloaded rules land in the workspace
rules directory and are recorded so later polls skip them.

Requires a contact User-Agent: set REGAP_SEC_USER_AGENT or
sec_user_agent in the global config.`,
	RunE: runFetch,
}

// FetchedRuleResult describes one downloaded rule in fetch output.
type FetchedRuleResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date,omitempty"`
	File  string `json:"file"`
}

// FetchResult is the response for the fetch command.
type FetchResult struct {
	Status   string              `json:"status"`
	NewRules int                 `json:"new_rules"`
	Rules    []FetchedRuleResult `json:"rules,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	db := mustOpenDatabase(root)
	defer db.Close()

	monitor := mustMonitor(db, cfg.RulesPath(root))

	rules, err := monitor.ProcessNewRules(ctx)
	if err != nil {
		exitWithError(ExitError, "polling SEC rulemaking feed: %v", err)
	}

	results := make([]FetchedRuleResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, FetchedRuleResult{
			Title: rule.Title,
			URL:   rule.URL,
			Date:  rule.Date,
			File:  filepath.Base(rule.PDFPath),
		})
	}

	if humanOutput {
		if len(rules) == 0 {
			fmt.Println("No new rules found.")
			return nil
		}
		fmt.Printf("Downloaded %d new rule(s):\n", len(rules))
		for _, r := range results {
			fmt.Printf("  %s\n", r.Title)
			if r.Date != "" {
				fmt.Printf("    date: %s\n", r.Date)
			}
			fmt.Printf("    file: %s\n", r.File)
		}
	} else {
		outputJSON(FetchResult{
			Status:   "complete",
			NewRules: len(rules),
			Rules:    results,
		})
	}

	return nil
}
