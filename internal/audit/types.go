// Package audit performs gap analysis: each extracted mandate is checked
// against retrieved internal policy context and classified into a finding.
package audit

import (
	"fmt"
	"strings"

	"github.com/complykit/regap/internal/mandate"
)

// Status is the compliance verdict for one mandate.
type Status string

const (
	StatusFullyCompliant     Status = "Fully Compliant"
	StatusPartiallyCompliant Status = "Partially Compliant"
	StatusNonCompliant       Status = "Non-Compliant"
	StatusNoRelevantPolicy   Status = "No Relevant Policy Found"
	StatusUnknown            Status = "Unknown" // model label not recognized
)

// ParseStatus maps a model-supplied status label onto the known set.
// "Major Gap" is the model's historical wording for Non-Compliant.
// An unrecognized label maps to Unknown rather than failing the parse.
func ParseStatus(label string) Status {
	switch normalizeLabel(label) {
	case "fullycompliant", "compliant", "full":
		return StatusFullyCompliant
	case "partiallycompliant", "partialcompliance", "partial":
		return StatusPartiallyCompliant
	case "noncompliant", "notcompliant", "majorgap", "gap":
		return StatusNonCompliant
	case "norelevantpolicyfound", "norelevantpolicy", "nopolicyfound", "nopolicy":
		return StatusNoRelevantPolicy
	default:
		return StatusUnknown
	}
}

// RiskLevel grades how much exposure a gap creates.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
	RiskUnknown  RiskLevel = "Unknown" // model label not recognized
)

// RiskLevels is the report presentation order, most severe first.
var RiskLevels = []RiskLevel{RiskCritical, RiskHigh, RiskMedium, RiskLow}

// ParseRiskLevel maps a model-supplied risk label onto the known set.
func ParseRiskLevel(label string) RiskLevel {
	switch normalizeLabel(label) {
	case "low", "minor":
		return RiskLow
	case "medium", "moderate":
		return RiskMedium
	case "high", "severe":
		return RiskHigh
	case "critical":
		return RiskCritical
	default:
		return RiskUnknown
	}
}

// normalizeLabel lowercases and strips everything but letters so label
// variants compare equal.
func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Finding is the gap-analysis verdict for a single mandate. Every mandate
// produces exactly one Finding; analysis failures produce an explicit
// error Finding rather than nothing.
type Finding struct {
	Mandate           mandate.Mandate `json:"mandate"`
	Status            Status          `json:"status"`
	GapDescription    string          `json:"gap_description"`
	ImpactedDocuments []string        `json:"impacted_documents"`
	RecommendedAction string          `json:"recommended_action"`
	Confidence        float64         `json:"confidence"` // model certainty in [0,1]
	Risk              RiskLevel       `json:"risk"`
	Raw               string          `json:"raw,omitempty"`   // unparsed model response
	Err               string          `json:"error,omitempty"` // non-empty when analysis failed
}

// Failed reports whether this is an error Finding.
func (f Finding) Failed() bool {
	return f.Err != ""
}

// Text renders the finding as a labeled block for report artifacts. The
// raw model response is reproduced when one exists; error findings get an
// explicit ERROR line so no mandate ever vanishes from the report.
func (f Finding) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Mandate:** %s\n", f.Mandate.Title)
	if f.Err != "" {
		fmt.Fprintf(&b, "ERROR: %s\n", f.Err)
	}
	if f.Raw != "" {
		b.WriteString(f.Raw)
	} else {
		fmt.Fprintf(&b, "**Compliance Status:** %s\n", f.Status)
		fmt.Fprintf(&b, "**Gap Analysis:** %s\n", f.GapDescription)
		fmt.Fprintf(&b, "**Risk Level:** %s", f.Risk)
	}
	return strings.TrimRight(b.String(), "\n")
}
