package mandate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/complykit/regap/internal/llm"
	"github.com/complykit/regap/internal/logger"
)

const (
	// DefaultMaxChars bounds how much regulation text is submitted for
	// extraction. Federal releases run to hundreds of pages, and the
	// budget keeps prompts inside the generation model's context window.
	DefaultMaxChars = 100_000

	// minRegulationChars is the fail-fast floor. Anything shorter holds
	// no obligations worth a generation call.
	minRegulationChars = 100

	// truncationMarker is appended whenever the budget cuts the text.
	// Truncation is lossy and must be visible, never silent.
	truncationMarker = "\n\n[TRUNCATED: regulation text exceeded analysis budget]"
)

// ErrRegulationTooShort reports input text too small to analyze.
var ErrRegulationTooShort = errors.New("regulation text too short to analyze")

// extractionPrompt instructs the model to emit binding obligations only,
// one structured block per mandate, or the sentinel for concept releases.
const extractionPrompt = `Analyze the following SEC regulation text and extract all actionable mandates required for a company to be compliant. Focus exclusively on binding, affirmative obligations: statements using "must", "shall", "required to", or carrying concrete deadlines. Ignore the document's history, commentary, proposals, and non-binding suggestions.

If this document is a concept release or contains no extractable mandates, respond with exactly this line and nothing else:
NO ACTIONABLE MANDATES FOUND

Otherwise respond with a numbered list. For each distinct mandate provide:

1. **Mandate:** [A short, descriptive title (e.g., 'Incident Disclosure Timeline')]
**Category:** [One of: Disclosure, Reporting, Internal Controls, Timeline/Deadline, Governance, Documentation, Other]
**Requirement:** [A clear, one-sentence summary of what the company must do]
**Specifics:** [Key details such as thresholds, deadlines, and covered entities]
**Source Text:** [The exact quote from the regulation that defines this mandate]

Here is the regulation text:
---
%s
---`

// Extractor turns one regulation's full text into an Extraction.
type Extractor struct {
	client   llm.Client
	maxChars int
	log      zerolog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxChars overrides the submission budget.
func WithMaxChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// NewExtractor creates an extractor backed by the given generation client.
func NewExtractor(client llm.Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client:   client,
		maxChars: DefaultMaxChars,
		log:      logger.For("mandate"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract analyzes regulation text and returns the parsed mandates.
// Failures come back both as the error and inside the Extraction, so the
// result can keep flowing through the pipeline and surface in the report
// as an explicit error record.
func (e *Extractor) Extract(ctx context.Context, regulationText string) (Extraction, error) {
	trimmed := strings.TrimSpace(regulationText)
	if len(trimmed) < minRegulationChars {
		err := fmt.Errorf("%w: got %d characters", ErrRegulationTooShort, len(trimmed))
		return Extraction{Err: err}, err
	}

	submitted := trimmed
	if len(submitted) > e.maxChars {
		submitted = truncate(submitted, e.maxChars) + truncationMarker
		e.log.Warn().
			Int("original_chars", len(trimmed)).
			Int("submitted_chars", len(submitted)).
			Msg("regulation text truncated to fit analysis budget")
	}

	response, err := e.client.Complete(ctx, fmt.Sprintf(extractionPrompt, submitted), 0)
	if err != nil {
		err = fmt.Errorf("extracting mandates: %w", err)
		return Extraction{Err: err}, err
	}

	mandates, conceptRelease := ParseResponse(response)
	ext := Extraction{Mandates: mandates, ConceptRelease: conceptRelease, Raw: response}
	if conceptRelease {
		e.log.Info().Msg("concept release, no actionable mandates")
	} else {
		e.log.Info().Int("mandates", len(mandates)).Msg("mandates extracted")
	}
	return ext, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
