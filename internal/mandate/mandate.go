// Package mandate extracts structured regulatory obligations from
// free-form regulation text via a generation model, then parses the
// model's semi-structured response into typed records.
package mandate

import "strings"

// Category classifies what kind of obligation a mandate imposes.
type Category string

const (
	CategoryDisclosure       Category = "Disclosure"        // public or investor disclosure duties
	CategoryReporting        Category = "Reporting"         // filings and periodic reports
	CategoryInternalControls Category = "Internal Controls" // processes, controls, safeguards
	CategoryTimeline         Category = "Timeline/Deadline" // date-bound obligations
	CategoryGovernance       Category = "Governance"        // board and officer duties
	CategoryDocumentation    Category = "Documentation"     // records that must exist
	CategoryOther            Category = "Other"             // recognized but outside the list
	CategoryUncategorized    Category = "Uncategorized"     // model supplied no category
)

// ParseCategory maps a model-supplied category label onto the known set.
// Labels are matched loosely (case, spacing, and punctuation ignored); an
// unrecognized label maps to Other rather than failing the parse, and an
// absent one to Uncategorized.
func ParseCategory(label string) Category {
	normalized := normalizeLabel(label)
	switch normalized {
	case "":
		return CategoryUncategorized
	case "disclosure", "disclosures":
		return CategoryDisclosure
	case "reporting", "report", "reports":
		return CategoryReporting
	case "internalcontrol", "internalcontrols", "controls":
		return CategoryInternalControls
	case "timeline", "deadline", "timelinedeadline", "timelinesdeadlines":
		return CategoryTimeline
	case "governance":
		return CategoryGovernance
	case "documentation", "recordkeeping":
		return CategoryDocumentation
	case "other", "uncategorized", "unrecognized":
		return CategoryOther
	default:
		return CategoryOther
	}
}

// normalizeLabel lowercases and strips everything but letters, so
// "Internal Controls", "internal-controls", and "INTERNAL_CONTROLS"
// all compare equal.
func normalizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mandate is one discrete binding obligation extracted from a regulation.
type Mandate struct {
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Requirement string   `json:"requirement"` // one-sentence summary of the duty
	Specifics   string   `json:"specifics"`   // thresholds, deadlines, covered entities
	Raw         string   `json:"raw"`         // the full response block this was parsed from
}

// Extraction is the outcome of running the extractor on one regulation.
// Exactly one of three shapes: a list of mandates, a concept-release
// marker with zero mandates, or an error carried in Err. Err rides along
// so the gap analyzer can pass a failed extraction through untouched.
type Extraction struct {
	Mandates       []Mandate
	ConceptRelease bool   // regulation is non-binding, zero mandates is the answer
	Raw            string // unparsed model response
	Err            error
}

// Text returns the raw model response, or an explicit error line when
// extraction failed. Report artifacts embed this, and they must never
// be empty.
func (e Extraction) Text() string {
	if e.Err != nil {
		return "ERROR: mandate extraction failed: " + e.Err.Error()
	}
	if strings.TrimSpace(e.Raw) == "" {
		return "(the generation model returned an empty response)"
	}
	return e.Raw
}
