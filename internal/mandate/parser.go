package mandate

import (
	"regexp"
	"strings"
)

// NoMandatesSentinel is the exact line the extraction prompt tells the
// model to emit when a document is a concept release or otherwise
// contains no binding obligations.
const NoMandatesSentinel = "NO ACTIONABLE MANDATES FOUND"

const (
	// minBlockChars is the floor below which a trimmed candidate block
	// is discarded as noise rather than parsed into a mandate.
	minBlockChars = 50

	// maxTitleChars caps titles synthesized from unstructured blocks.
	maxTitleChars = 100
)

// Block splitters tried in priority order. The model is asked for a
// numbered list, but responses drift, so each later pattern is a looser
// reading of the same structure.
var blockSplitters = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^[ \t]{0,8}\d{1,3}[.)][ \t]`),
	regexp.MustCompile(`(?mi)^[ \t]*\*\*[ \t]*mandate\b`),
	regexp.MustCompile(`(?mi)^[ \t]*mandate\b`),
}

// labelRe matches one labeled field line, tolerating numbering, bullets,
// bold markers, and a trailing index ("MANDATE 2:"). Capture 1 is the
// label, capture 2 the rest of the line.
var labelRe = regexp.MustCompile(`(?i)^\s*(?:\d{1,3}[.)]\s*)?(?:[-•]\s*)?\*{0,2}(mandate|title|category|requirement|specifics|source\s*text)\b\*{0,2}(?:\s+\d{1,3})?\s*:\s*\*{0,2}\s*(.*)$`)

// ParseResponse decomposes a generation response into mandate records.
// The concept-release sentinel is reported separately so callers can
// distinguish "zero obligations is the answer" from a parse that found
// nothing. Responses that defy every splitting strategy degrade to a
// single unstructured mandate instead of being discarded.
func ParseResponse(response string) (mandates []Mandate, conceptRelease bool) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, false
	}
	if strings.Contains(strings.ToUpper(trimmed), NoMandatesSentinel) {
		return nil, true
	}

	blocks := []string{trimmed}
	for _, re := range blockSplitters {
		if candidate := splitBlocks(re, trimmed); len(candidate) > 1 {
			blocks = candidate
			break
		}
	}

	for _, block := range blocks {
		if len(block) < minBlockChars {
			continue
		}
		mandates = append(mandates, parseBlock(block))
	}
	return mandates, false
}

// splitBlocks cuts s at the start of every line matching re. Text before
// the first match becomes a block of its own and is left to the length
// filter, the same as any other segment.
func splitBlocks(re *regexp.Regexp, s string) []string {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}

	starts := make([]int, 0, len(locs)+1)
	if locs[0][0] > 0 {
		starts = append(starts, 0)
	}
	for _, loc := range locs {
		starts = append(starts, loc[0])
	}

	blocks := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(s)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if block := strings.TrimSpace(s[start:end]); block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// parseBlock field-extracts one candidate block. A block with no
// locatable title or requirement is captured whole as an unstructured
// mandate rather than dropped.
func parseBlock(block string) Mandate {
	fields := parseFields(block)

	title := fields["mandate"]
	if title == "" {
		title = fields["title"]
	}
	requirement := fields["requirement"]

	if title == "" || requirement == "" {
		return Mandate{
			Title:       firstSentence(block, maxTitleChars),
			Category:    CategoryUncategorized,
			Requirement: block,
			Raw:         block,
		}
	}

	return Mandate{
		Title:       title,
		Category:    ParseCategory(fields["category"]),
		Requirement: requirement,
		Specifics:   fields["specifics"],
		Raw:         block,
	}
}

// parseFields walks the block line by line, assigning each line to the
// most recently seen label. Lines before the first label are ignored;
// continuation lines keep their original text.
func parseFields(block string) map[string]string {
	values := make(map[string][]string)
	current := ""
	for _, line := range strings.Split(block, "\n") {
		if name, rest, ok := matchLabel(line); ok {
			current = name
			if rest != "" {
				values[name] = append(values[name], rest)
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
	for name, parts := range values {
		fields[name] = strings.Join(parts, "\n")
	}
	return fields
}

// matchLabel reports whether line is a labeled field line and returns
// the canonical lowercase label plus the remainder of the line.
func matchLabel(line string) (name, rest string, ok bool) {
	m := labelRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name = strings.Join(strings.Fields(strings.ToLower(m[1])), " ")
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), "**"))
	return name, rest, true
}

// firstSentence returns the first sentence of s, cut at limit runes.
func firstSentence(s string, limit int) string {
	s = strings.TrimSpace(s)
	end := len(s)
	for i, r := range s {
		if r == '\n' {
			end = i
			break
		}
		if r == '.' || r == '!' || r == '?' {
			end = i + 1
			break
		}
	}
	s = strings.TrimSpace(s[:end])

	runes := []rune(s)
	if len(runes) > limit {
		s = string(runes[:limit])
	}
	return s
}
