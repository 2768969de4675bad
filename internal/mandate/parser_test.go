package mandate

import (
	"strings"
	"testing"
)

const numberedResponse = `Here are the mandates:

1. **Mandate:** Incident Disclosure Timeline
**Category:** Disclosure
**Requirement:** The company must disclose material cybersecurity incidents within four business days of determining materiality.
**Specifics:** Form 8-K Item 1.05; four business days run from the materiality determination, not discovery.
**Source Text:** "Registrants must disclose any cybersecurity incident determined to be material within four business days."

2. **Mandate:** Annual Risk Management Disclosure
**Category:** Reporting
**Requirement:** The company shall describe its processes for assessing and managing cybersecurity risks in its annual report.
**Specifics:** Regulation S-K Item 106; applies to annual reports for fiscal years ending on or after December 15.
**Source Text:** "Registrants shall describe their processes, if any, for assessing, identifying, and managing material risks."

3. **Mandate:** Board Oversight Description
**Category:** Governance
**Requirement:** The company is required to describe the board of directors' oversight of cybersecurity risk.
**Specifics:** Identify the responsible committee and how it is informed of incidents.
**Source Text:** "Describe the board of directors' oversight of risks from cybersecurity threats."`

func TestParseResponse_NumberedList(t *testing.T) {
	mandates, conceptRelease := ParseResponse(numberedResponse)
	if conceptRelease {
		t.Fatal("conceptRelease = true, want false")
	}
	if len(mandates) != 3 {
		t.Fatalf("len(mandates) = %d, want 3", len(mandates))
	}

	first := mandates[0]
	if first.Title != "Incident Disclosure Timeline" {
		t.Errorf("Title = %q, want %q", first.Title, "Incident Disclosure Timeline")
	}
	if first.Category != CategoryDisclosure {
		t.Errorf("Category = %q, want %q", first.Category, CategoryDisclosure)
	}
	want := "The company must disclose material cybersecurity incidents within four business days of determining materiality."
	if first.Requirement != want {
		t.Errorf("Requirement = %q, want %q", first.Requirement, want)
	}
	if !strings.Contains(first.Specifics, "Form 8-K Item 1.05") {
		t.Errorf("Specifics = %q, want Form 8-K reference", first.Specifics)
	}
	if !strings.Contains(first.Raw, "Source Text") {
		t.Errorf("Raw should carry the full block, got %q", first.Raw)
	}

	if mandates[1].Category != CategoryReporting {
		t.Errorf("mandates[1].Category = %q, want %q", mandates[1].Category, CategoryReporting)
	}
	if mandates[2].Title != "Board Oversight Description" {
		t.Errorf("mandates[2].Title = %q, want %q", mandates[2].Title, "Board Oversight Description")
	}
	if mandates[2].Category != CategoryGovernance {
		t.Errorf("mandates[2].Category = %q, want %q", mandates[2].Category, CategoryGovernance)
	}
}

func TestParseResponse_MandateMarkers(t *testing.T) {
	response := `**Mandate:** Record Retention Period
**Category:** Documentation
**Requirement:** Broker-dealers must retain transaction records for six years.
**Specifics:** The first two years in an easily accessible place.

**Mandate:** Customer Breach Notification
**Category:** Disclosure
**Requirement:** Firms shall notify affected customers of data breaches within 30 days.
**Specifics:** Written notice describing the incident and the data involved.`

	mandates, conceptRelease := ParseResponse(response)
	if conceptRelease {
		t.Fatal("conceptRelease = true, want false")
	}
	if len(mandates) != 2 {
		t.Fatalf("len(mandates) = %d, want 2", len(mandates))
	}
	if mandates[0].Title != "Record Retention Period" {
		t.Errorf("Title = %q, want %q", mandates[0].Title, "Record Retention Period")
	}
	if mandates[1].Title != "Customer Breach Notification" {
		t.Errorf("Title = %q, want %q", mandates[1].Title, "Customer Breach Notification")
	}
	if mandates[0].Category != CategoryDocumentation {
		t.Errorf("Category = %q, want %q", mandates[0].Category, CategoryDocumentation)
	}
}

func TestParseResponse_MandateHeaders(t *testing.T) {
	response := `MANDATE 1: Execution Quality Reports
Category: Reporting
Requirement: Market centers must publish monthly execution quality statistics for covered orders.

MANDATE 2: Order Routing Disclosure
Category: Disclosure
Requirement: Broker-dealers shall disclose their order routing practices on a quarterly basis.`

	mandates, conceptRelease := ParseResponse(response)
	if conceptRelease {
		t.Fatal("conceptRelease = true, want false")
	}
	if len(mandates) != 2 {
		t.Fatalf("len(mandates) = %d, want 2", len(mandates))
	}
	if mandates[0].Title != "Execution Quality Reports" {
		t.Errorf("Title = %q, want %q", mandates[0].Title, "Execution Quality Reports")
	}
	if mandates[0].Requirement != "Market centers must publish monthly execution quality statistics for covered orders." {
		t.Errorf("Requirement = %q", mandates[0].Requirement)
	}
	if mandates[1].Title != "Order Routing Disclosure" {
		t.Errorf("Title = %q, want %q", mandates[1].Title, "Order Routing Disclosure")
	}
}

func TestParseResponse_Sentinel(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"exact", "NO ACTIONABLE MANDATES FOUND"},
		{"lowercase", "no actionable mandates found"},
		{"embedded", "This document is a concept release soliciting comment only.\nNO ACTIONABLE MANDATES FOUND."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mandates, conceptRelease := ParseResponse(tt.response)
			if !conceptRelease {
				t.Error("conceptRelease = false, want true")
			}
			if len(mandates) != 0 {
				t.Errorf("len(mandates) = %d, want 0", len(mandates))
			}
		})
	}
}

func TestParseResponse_UnstructuredFallback(t *testing.T) {
	response := "The regulation requires registered investment advisers to adopt and implement written policies reasonably designed to prevent violations of the Advisers Act. Advisers must also review those policies annually for adequacy."

	mandates, conceptRelease := ParseResponse(response)
	if conceptRelease {
		t.Fatal("conceptRelease = true, want false")
	}
	if len(mandates) != 1 {
		t.Fatalf("len(mandates) = %d, want 1", len(mandates))
	}

	m := mandates[0]
	if m.Requirement != response {
		t.Errorf("Requirement should be the whole block, got %q", m.Requirement)
	}
	if !strings.HasPrefix(m.Title, "The regulation requires") {
		t.Errorf("Title = %q, want first-sentence prefix", m.Title)
	}
	if n := len([]rune(m.Title)); n > 100 {
		t.Errorf("len(Title) = %d runes, want <= 100", n)
	}
	if m.Category != CategoryUncategorized {
		t.Errorf("Category = %q, want %q", m.Category, CategoryUncategorized)
	}
}

func TestParseResponse_DiscardsShortBlocks(t *testing.T) {
	response := `1. Too short.

2. **Mandate:** Annual Filing Deadline
**Category:** Timeline/Deadline
**Requirement:** Firms must file annual reports with the Commission no later than 60 days after fiscal year end.`

	mandates, _ := ParseResponse(response)
	if len(mandates) != 1 {
		t.Fatalf("len(mandates) = %d, want 1", len(mandates))
	}
	if mandates[0].Title != "Annual Filing Deadline" {
		t.Errorf("Title = %q, want %q", mandates[0].Title, "Annual Filing Deadline")
	}
	if mandates[0].Category != CategoryTimeline {
		t.Errorf("Category = %q, want %q", mandates[0].Category, CategoryTimeline)
	}
}

func TestParseResponse_Empty(t *testing.T) {
	for _, response := range []string{"", "   ", "\n\n"} {
		mandates, conceptRelease := ParseResponse(response)
		if mandates != nil {
			t.Errorf("ParseResponse(%q) = %v, want nil", response, mandates)
		}
		if conceptRelease {
			t.Errorf("ParseResponse(%q) conceptRelease = true, want false", response)
		}
	}
}

func TestParseResponse_Idempotent(t *testing.T) {
	first, _ := ParseResponse(numberedResponse)
	second, _ := ParseResponse(numberedResponse)
	if len(first) != len(second) {
		t.Fatalf("repeated parse lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("mandate %d differs between parses", i)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		label string
		want  Category
	}{
		{"Disclosure", CategoryDisclosure},
		{"disclosure", CategoryDisclosure},
		{"Reporting", CategoryReporting},
		{"Internal Controls", CategoryInternalControls},
		{"internal-controls", CategoryInternalControls},
		{"INTERNAL CONTROLS", CategoryInternalControls},
		{"Timeline/Deadline", CategoryTimeline},
		{"Deadline", CategoryTimeline},
		{"Governance", CategoryGovernance},
		{"Documentation", CategoryDocumentation},
		{"Recordkeeping", CategoryDocumentation},
		{"Other", CategoryOther},
		{"Market Structure", CategoryOther},
		{"", CategoryUncategorized},
		{"   ", CategoryUncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ParseCategory(tt.label); got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"period", "First sentence. Second sentence.", 100, "First sentence."},
		{"newline", "First line\nsecond line", 100, "First line"},
		{"truncated", strings.Repeat("a", 150), 100, strings.Repeat("a", 100)},
		{"whole", "No terminator here", 100, "No terminator here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstSentence(tt.in, tt.limit); got != tt.want {
				t.Errorf("firstSentence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractionText(t *testing.T) {
	withErr := Extraction{Err: ErrRegulationTooShort}
	if got := withErr.Text(); !strings.HasPrefix(got, "ERROR:") {
		t.Errorf("Text() with error = %q, want ERROR prefix", got)
	}

	empty := Extraction{}
	if got := empty.Text(); got == "" {
		t.Error("Text() on empty extraction should never be empty")
	}

	normal := Extraction{Raw: "1. **Mandate:** Something"}
	if got := normal.Text(); got != normal.Raw {
		t.Errorf("Text() = %q, want raw response", got)
	}
}
