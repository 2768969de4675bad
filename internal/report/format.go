package report

import (
	"fmt"
	"strings"

	"github.com/complykit/regap/internal/audit"
	"github.com/complykit/regap/internal/storage"
)

var headerBar = strings.Repeat("=", 64)

// formatHeader renders the fixed metadata block at the top of every report.
func formatHeader(title string, run RunInfo, regulationCount int) string {
	var sb strings.Builder
	sb.WriteString(headerBar + "\n")
	sb.WriteString(title + "\n")
	sb.WriteString(headerBar + "\n")
	fmt.Fprintf(&sb, "Report date:  %s\n", run.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Run ID:       %s\n", run.RunID)
	fmt.Fprintf(&sb, "Regulations:  %d\n", regulationCount)
	sb.WriteString(headerBar + "\n")
	return sb.String()
}

// sectionHeader renders a section title with a dashed underline.
func sectionHeader(title string) string {
	return title + "\n" + strings.Repeat("-", len(title)) + "\n"
}

// formatRegulationsAnalyzed renders the deterministic inventory of analyzed
// regulations: title, file, date, and mandate count, with concept releases
// called out explicitly.
func formatRegulationsAnalyzed(records []storage.RegulationRecord) string {
	var sb strings.Builder
	sb.WriteString(sectionHeader("REGULATIONS ANALYZED"))
	for i, rec := range records {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rec.Title)
		fmt.Fprintf(&sb, "   File: %s\n", rec.FileName)
		if rec.Date != "" {
			fmt.Fprintf(&sb, "   Date: %s\n", rec.Date)
		}
		if rec.ConceptRelease {
			sb.WriteString("   Mandates: 0 (concept release, no actionable mandates)\n")
		} else {
			fmt.Fprintf(&sb, "   Mandates: %d\n", rec.MandateCount)
		}
	}
	return sb.String()
}

// formatFindingsByRisk renders the deterministic risk partition. All four
// ranked levels always appear with their counts; an Unclassified trailer
// appears only when findings carry no recognized risk level, which includes
// failed analyses.
func formatFindingsByRisk(records []storage.RegulationRecord) string {
	buckets := make(map[audit.RiskLevel][]string)
	for _, rec := range records {
		for _, f := range rec.Findings {
			status := string(f.Status)
			if f.Failed() {
				status = "Analysis Failed"
			}
			risk := f.Risk
			if risk == "" {
				risk = audit.RiskUnknown
			}
			line := fmt.Sprintf("[%s] %s - %s", rec.FileName, f.Mandate.Title, status)
			buckets[risk] = append(buckets[risk], line)
		}
	}

	var sb strings.Builder
	sb.WriteString(sectionHeader("CONSOLIDATED FINDINGS BY RISK LEVEL"))
	for _, level := range audit.RiskLevels {
		items := buckets[level]
		fmt.Fprintf(&sb, "%s (%d)\n", level, len(items))
		for _, item := range items {
			sb.WriteString("  - " + item + "\n")
		}
	}
	if items := buckets[audit.RiskUnknown]; len(items) > 0 {
		fmt.Fprintf(&sb, "Unclassified (%d)\n", len(items))
		for _, item := range items {
			sb.WriteString("  - " + item + "\n")
		}
	}
	return sb.String()
}

// fallbackBody is the deterministic summary substituted when the synthesis
// model returns nothing usable. The report must never be blank.
func fallbackBody(records []storage.RegulationRecord) string {
	var sb strings.Builder
	sb.WriteString(sectionHeader("EXECUTIVE SUMMARY (AUTOMATED FALLBACK)"))
	sb.WriteString("The report generation model returned insufficient output. The\n")
	sb.WriteString("following summary was assembled directly from the recorded findings.\n\n")
	for i, rec := range records {
		if rec.ConceptRelease {
			fmt.Fprintf(&sb, "%d. %s (%s): concept release, no actionable mandates.\n", i+1, rec.Title, rec.FileName)
			continue
		}
		if len(rec.Findings) == 0 {
			fmt.Fprintf(&sb, "%d. %s (%s): %d mandates, no findings recorded.\n", i+1, rec.Title, rec.FileName, rec.MandateCount)
			continue
		}
		fmt.Fprintf(&sb, "%d. %s (%s): %d findings (%s).\n", i+1, rec.Title, rec.FileName, len(rec.Findings), riskSummary(rec.Findings))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// riskSummary renders finding counts per risk level, e.g. "2 Critical, 3 Medium".
func riskSummary(findings []audit.Finding) string {
	counts := make(map[audit.RiskLevel]int)
	for _, f := range findings {
		risk := f.Risk
		if risk == "" {
			risk = audit.RiskUnknown
		}
		counts[risk]++
	}

	var parts []string
	for _, level := range audit.RiskLevels {
		if n := counts[level]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, level))
		}
	}
	if n := counts[audit.RiskUnknown]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d Unclassified", n))
	}
	return strings.Join(parts, ", ")
}

// formatAppendix reproduces every regulation's raw extraction and analysis
// output in full, for audit.
func formatAppendix(records []storage.RegulationRecord) string {
	var sb strings.Builder
	sb.WriteString(headerBar + "\n")
	sb.WriteString("APPENDIX: FULL EXTRACTION AND ANALYSIS DETAIL\n")
	sb.WriteString(headerBar + "\n")
	for i, rec := range records {
		title := fmt.Sprintf("A.%d %s (%s)", i+1, rec.Title, rec.FileName)
		sb.WriteString("\n")
		sb.WriteString(sectionHeader(title))
		sb.WriteString("\nExtracted mandates:\n\n")
		sb.WriteString(strings.TrimSpace(rec.MandatesText))
		sb.WriteString("\n\nGap findings:\n\n")
		sb.WriteString(strings.TrimSpace(rec.FindingsText))
		sb.WriteString("\n")
	}
	return sb.String()
}
