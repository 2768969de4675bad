package audit

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/complykit/regap/internal/mandate"
)

// findingLabelRe matches one labeled line of the analysis response,
// tolerating bullets and bold markers. Capture 1 is the label, capture 2
// the rest of the line.
var findingLabelRe = regexp.MustCompile(`(?i)^\s*(?:[-•]\s*)?\*{0,2}(compliance\s*status|status|gap\s*analysis|gap\s*description|impacted\s*documents?|recommended\s*action|confidence\s*score|confidence|risk\s*level|risk)\b\*{0,2}\s*:\s*\*{0,2}\s*(.*)$`)

var confidenceRe = regexp.MustCompile(`\d*\.?\d+`)

// parseFinding turns one analysis response into a Finding for the given
// mandate. The parse is tolerant: unrecognized labels map to Unknown, a
// missing gap section falls back to the whole response, and nothing here
// ever returns an empty Finding.
func parseFinding(m mandate.Mandate, response string) Finding {
	fields := parseFindingFields(response)

	gap := fields["gap"]
	if gap == "" {
		gap = strings.TrimSpace(response)
	}

	return Finding{
		Mandate:           m,
		Status:            ParseStatus(fields["status"]),
		GapDescription:    gap,
		ImpactedDocuments: splitDocuments(fields["documents"]),
		RecommendedAction: fields["action"],
		Confidence:        parseConfidence(fields["confidence"]),
		Risk:              ParseRiskLevel(fields["risk"]),
		Raw:               strings.TrimSpace(response),
	}
}

// parseFindingFields walks the response line by line, assigning each line
// to the most recently seen label. Labels are canonicalized to short keys.
func parseFindingFields(response string) map[string]string {
	values := make(map[string][]string)
	current := ""
	for _, line := range strings.Split(response, "\n") {
		if key, rest, ok := matchFindingLabel(line); ok {
			current = key
			if rest != "" {
				values[key] = append(values[key], rest)
			}
			continue
		}
		if current == "" {
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			values[current] = append(values[current], trimmed)
		}
	}

	fields := make(map[string]string, len(values))
	for key, parts := range values {
		fields[key] = strings.Join(parts, "\n")
	}
	return fields
}

func matchFindingLabel(line string) (key, rest string, ok bool) {
	m := findingLabelRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}

	label := strings.ToLower(m[1])
	switch {
	case strings.Contains(label, "status"):
		key = "status"
	case strings.Contains(label, "gap"):
		key = "gap"
	case strings.Contains(label, "document"):
		key = "documents"
	case strings.Contains(label, "action"):
		key = "action"
	case strings.Contains(label, "confidence"):
		key = "confidence"
	case strings.Contains(label, "risk"):
		key = "risk"
	}

	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), "**"))
	return key, rest, true
}

// parseConfidence extracts the first numeric token and clamps it to
// [0, 1]. Percentages are scaled down. An unparseable value reads as 0.
func parseConfidence(s string) float64 {
	token := confidenceRe.FindString(s)
	if token == "" {
		return 0
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(s, "%") {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// splitDocuments breaks a comma- or newline-separated document list into
// clean names. "Source:" prefixes and none/n-a placeholders are dropped.
func splitDocuments(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var docs []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	}) {
		doc := strings.TrimSpace(part)
		doc = strings.TrimPrefix(doc, "Source:")
		doc = strings.Trim(strings.TrimSpace(doc), "-• ")
		if doc == "" {
			continue
		}
		switch strings.ToLower(doc) {
		case "none", "n/a", "not applicable":
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
