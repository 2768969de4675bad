package report

import (
	"strings"
	"testing"
	"time"

	"github.com/complykit/regap/internal/audit"
	"github.com/complykit/regap/internal/storage"
)

func TestFormatHeader(t *testing.T) {
	run := RunInfo{
		RunID:       "run-20260820_143000-abc123",
		GeneratedAt: time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
	}

	got := formatHeader("CONSOLIDATED COMPLIANCE GAP ANALYSIS REPORT", run, 3)

	for _, want := range []string{
		"CONSOLIDATED COMPLIANCE GAP ANALYSIS REPORT",
		"Report date:  2026-08-20 14:30:00 UTC",
		"Run ID:       run-20260820_143000-abc123",
		"Regulations:  3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("header missing %q:\n%s", want, got)
		}
	}
}

func TestFormatFindingsByRisk_AllLevelsListed(t *testing.T) {
	got := formatFindingsByRisk(scenarioRecords())

	for _, want := range []string{
		"Critical (2)",
		"High (0)",
		"Medium (3)",
		"Low (0)",
		"  - [cyber_rule.pdf] Incident Disclosure Timeline - Non-Compliant",
		"  - [cyber_rule.pdf] Annual Risk Management Disclosure - Partially Compliant",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("risk partition missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Unclassified") {
		t.Error("Unclassified trailer present with no unknown-risk findings")
	}
}

func TestFormatFindingsByRisk_UnclassifiedTrailer(t *testing.T) {
	failed := testFinding("Broken Analysis", audit.RiskUnknown, audit.StatusUnknown)
	failed.Err = "generation timed out"

	records := []storage.RegulationRecord{
		{
			Title:    "Test Rule",
			FileName: "test.pdf",
			Findings: []audit.Finding{
				testFinding("Covered Mandate", audit.RiskLow, audit.StatusFullyCompliant),
				failed,
			},
		},
	}

	got := formatFindingsByRisk(records)

	if !strings.Contains(got, "Unclassified (1)") {
		t.Errorf("missing Unclassified trailer:\n%s", got)
	}
	if !strings.Contains(got, "  - [test.pdf] Broken Analysis - Analysis Failed") {
		t.Errorf("failed finding not labeled:\n%s", got)
	}
	if !strings.Contains(got, "Low (1)") {
		t.Errorf("ranked level miscounted:\n%s", got)
	}
}

func TestFormatRegulationsAnalyzed(t *testing.T) {
	got := formatRegulationsAnalyzed(scenarioRecords())

	for _, want := range []string{
		"REGULATIONS ANALYZED",
		"1. Cybersecurity Risk Management",
		"   File: cyber_rule.pdf",
		"   Date: 2024-07-18",
		"   Mandates: 5",
		"2. Climate Disclosure Concept Release",
		"   Mandates: 0 (concept release, no actionable mandates)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("inventory missing %q:\n%s", want, got)
		}
	}
}

func TestRiskSummary(t *testing.T) {
	rec := scenarioRecords()[0]

	got := riskSummary(rec.Findings)
	if got != "2 Critical, 3 Medium" {
		t.Errorf("riskSummary() = %q, want %q", got, "2 Critical, 3 Medium")
	}
}

func TestRiskSummary_Unclassified(t *testing.T) {
	findings := []audit.Finding{
		testFinding("One", audit.RiskHigh, audit.StatusNonCompliant),
		testFinding("Two", audit.RiskUnknown, audit.StatusUnknown),
	}

	got := riskSummary(findings)
	if got != "1 High, 1 Unclassified" {
		t.Errorf("riskSummary() = %q, want %q", got, "1 High, 1 Unclassified")
	}
}

func TestFallbackBody_NeverEmpty(t *testing.T) {
	got := fallbackBody([]storage.RegulationRecord{{Title: "Bare Rule", FileName: "bare.pdf"}})

	if strings.TrimSpace(got) == "" {
		t.Fatal("fallbackBody() returned empty text")
	}
	if !strings.Contains(got, "Bare Rule (bare.pdf)") {
		t.Errorf("fallback missing regulation identity:\n%s", got)
	}
}
