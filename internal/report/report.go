// Package report synthesizes recorded gap findings into the final
// compliance report artifact.
//
// The persisted report always carries a fixed header block, deterministic
// inventory sections computed from the records, a narrative body from the
// generation model, and an appendix reproducing every regulation's raw
// extraction and analysis output. When the model returns nothing usable
// the body degrades to a deterministic summary; the artifact is never
// blank.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/complykit/regap/internal/llm"
	"github.com/complykit/regap/internal/logger"
	"github.com/complykit/regap/internal/storage"
)

const (
	// DefaultMaxChars bounds the combined findings text submitted to the
	// synthesis model in one consolidated call.
	DefaultMaxChars = 150_000

	// minBodyChars is the floor below which a synthesized body is replaced
	// by the deterministic fallback summary.
	minBodyChars = 100

	// reportMaxTokens sizes the single synthesis call. Reports cover many
	// findings, so this runs well above the client default.
	reportMaxTokens = 4000

	truncationMarker = "\n\n[TRUNCATED: combined findings exceeded the synthesis budget]"

	fileTimeLayout = "20060102_150405"
)

// consolidatedPrompt steers the one synthesis call for multi-regulation
// reports. The deterministic sections around the body do not depend on it.
const consolidatedPrompt = `You are an AI assistant writing a consolidated compliance report for our company's legal team. Your tone must be professional, clear, and actionable. %d regulations were analyzed against the company's internal policy corpus:

%s

Using the complete gap analysis findings below, write the following sections and no other text before or after:

**Executive Summary:**
[Two or three paragraphs on the overall compliance posture, the most urgent gaps, and the themes shared across regulations.]

**Regulations Analyzed:**
[One short paragraph per regulation: what it requires and how well current policy covers it.]

**Consolidated Findings:**
[Group the findings by risk level: Critical, then High, then Medium, then Low. Within each level, describe each gap and its business impact.]

**Recommended Action Plan:**
[A phased remediation plan: immediate actions (0-30 days), near-term actions (1-3 months), and longer-term actions (3-6 months). Name the team that should own each action.]

---
**GAP ANALYSIS FINDINGS TO INCLUDE IN THE REPORT:**
%s
---`

const singlePrompt = `You are an AI assistant writing a report for our company's legal team. Your tone must be professional, clear, and actionable. Using the summary of the new regulation and the detailed gap analysis findings, generate a concise compliance report.

The report must include the following sections and no other text before or after:

**Executive Summary:**
- Regulation Title: %s
- Regulation Source: %s
- High-Level Overview: Briefly summarize the key compliance gaps found based on the detailed findings below.

**Detailed Findings:**
[Present the detailed gap analysis findings provided below. Format them clearly and professionally.]

**Recommended Stakeholders for Notification:**
[Based on the findings, list which stakeholders should be notified (e.g., Legal, CISO, Board of Directors, HR).]

**Disclaimer:**
This is an AI-generated preliminary analysis and requires comprehensive review by human legal and compliance professionals before any action is taken.

---
**GAP ANALYSIS FINDINGS TO INCLUDE IN THE REPORT:**
%s
---`

// RunInfo labels a report with the run that produced it.
type RunInfo struct {
	RunID       string
	GeneratedAt time.Time
}

// Synthesizer turns regulation records into report text.
type Synthesizer struct {
	client   llm.Client
	maxChars int
	log      zerolog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithMaxChars overrides the combined findings budget.
func WithMaxChars(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// NewSynthesizer creates a report synthesizer backed by the given client.
func NewSynthesizer(client llm.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		client:   client,
		maxChars: DefaultMaxChars,
		log:      logger.For("report"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Consolidated builds the full consolidated report covering one or more
// analyzed regulations. Zero records is the caller's fatal condition and
// returns an error; everything past that point produces a report.
func (s *Synthesizer) Consolidated(ctx context.Context, records []storage.RegulationRecord, run RunInfo) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no regulation records to report on")
	}

	prompt := fmt.Sprintf(consolidatedPrompt, len(records), regulationList(records), s.combineFindings(records))

	body, err := s.client.Complete(ctx, prompt, reportMaxTokens)
	if err != nil {
		s.log.Warn().Err(err).Msg("report synthesis failed, using deterministic fallback")
		body = ""
	}
	body = strings.TrimSpace(body)
	if len(body) < minBodyChars {
		if err == nil {
			s.log.Warn().Int("chars", len(body)).Msg("synthesized body too short, using deterministic fallback")
		}
		body = fallbackBody(records)
	}

	var sb strings.Builder
	sb.WriteString(formatHeader("CONSOLIDATED COMPLIANCE GAP ANALYSIS REPORT", run, len(records)))
	sb.WriteString("\n")
	sb.WriteString(formatRegulationsAnalyzed(records))
	sb.WriteString("\n")
	sb.WriteString(formatFindingsByRisk(records))
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n\n")
	sb.WriteString(formatAppendix(records))

	s.log.Info().Int("regulations", len(records)).Int("chars", sb.Len()).Msg("consolidated report synthesized")
	return sb.String(), nil
}

// Single builds a standalone report for one regulation's findings.
func (s *Synthesizer) Single(ctx context.Context, rec storage.RegulationRecord, run RunInfo) (string, error) {
	source := rec.SourceURL
	if source == "" {
		source = "Manually uploaded"
	}

	prompt := fmt.Sprintf(singlePrompt, rec.Title, source, rec.FindingsText)

	body, err := s.client.Complete(ctx, prompt, reportMaxTokens)
	if err != nil {
		s.log.Warn().Err(err).Str("regulation", rec.Title).Msg("report synthesis failed, using deterministic fallback")
		body = ""
	}
	body = strings.TrimSpace(body)
	if len(body) < minBodyChars {
		if err == nil {
			s.log.Warn().Int("chars", len(body)).Str("regulation", rec.Title).Msg("synthesized body too short, using deterministic fallback")
		}
		body = fallbackBody([]storage.RegulationRecord{rec})
	}

	var sb strings.Builder
	sb.WriteString(formatHeader("COMPLIANCE GAP ANALYSIS REPORT", run, 1))
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n\n")
	sb.WriteString(formatAppendix([]storage.RegulationRecord{rec}))

	return sb.String(), nil
}

// combineFindings concatenates every record's findings into one block for
// the synthesis prompt, bounded by the configured budget.
func (s *Synthesizer) combineFindings(records []storage.RegulationRecord) string {
	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s (%s)\n\n", rec.Title, rec.FileName)
		if rec.ConceptRelease {
			sb.WriteString("Concept release: no actionable mandates were extracted, so no gap findings exist for this regulation.")
			continue
		}
		sb.WriteString(rec.FindingsText)
	}

	combined := sb.String()
	if len(combined) > s.maxChars {
		s.log.Warn().
			Int("combined_chars", len(combined)).
			Int("submitted_chars", s.maxChars).
			Msg("combined findings truncated for synthesis")
		combined = truncate(combined, s.maxChars) + truncationMarker
	}
	return combined
}

// regulationList renders the one-line-per-regulation inventory embedded in
// the synthesis prompt.
func regulationList(records []storage.RegulationRecord) string {
	var sb strings.Builder
	for i, rec := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		if rec.ConceptRelease {
			fmt.Fprintf(&sb, "- %s (%s): concept release, no actionable mandates", rec.Title, rec.FileName)
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %d mandates", rec.Title, rec.FileName, rec.MandateCount)
	}
	return sb.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Write persists a consolidated report under dir, creating the directory
// if needed, and returns the full artifact path.
func Write(dir, text string, generatedAt time.Time) (string, error) {
	name := "consolidated_compliance_report_" + generatedAt.Format(fileTimeLayout) + ".txt"
	return writeArtifact(dir, name, text)
}

// WriteSingle persists a single-regulation report under dir.
func WriteSingle(dir, text string, generatedAt time.Time) (string, error) {
	name := "compliance_report_" + generatedAt.Format(fileTimeLayout) + ".txt"
	return writeArtifact(dir, name, text)
}

func writeArtifact(dir, name, text string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
