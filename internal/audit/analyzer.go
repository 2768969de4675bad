package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/complykit/regap/internal/embedding"
	"github.com/complykit/regap/internal/index"
	"github.com/complykit/regap/internal/llm"
	"github.com/complykit/regap/internal/logger"
	"github.com/complykit/regap/internal/mandate"
)

const (
	// DefaultWorkers bounds concurrent per-mandate generation calls.
	DefaultWorkers = 4

	// DefaultTopK is how many policy chunks are retrieved per mandate.
	DefaultTopK = 5

	// contextSeparator joins retrieved chunks into one context window.
	contextSeparator = "\n\n===\n\n"

	// noContextFound stands in for context when retrieval fails or the
	// index has nothing relevant. The analysis still runs; the model is
	// told there is no policy to compare against.
	noContextFound = "No relevant internal policy sections were found."

	// minAnalysisChars is the floor below which a response is treated
	// as an insufficient analysis.
	minAnalysisChars = 50
)

// analysisPrompt asks for a labeled verdict on one mandate given the
// retrieved policy context.
const analysisPrompt = `You are an AI compliance auditor. Perform a gap analysis for a specific regulatory mandate against our internal company policies.

**Regulatory Mandate to Analyze:**
Title: %s
Category: %s
Requirement: %s
Specifics: %s

**Relevant Sections from Our Internal Policies:**
%s

**Your Task:**
1. Compare our internal policy text with the specific requirement of the mandate.
2. Determine the compliance status.
3. Identify the impacted documents (use the 'Source:' markers from the policy sections).
4. Explain where our current policy falls short, or confirm that it is sufficient.
5. Recommend one concrete remediation action.
6. Provide a confidence score from 0.0 to 1.0 and a risk level.

**Format your output exactly as follows:**
**Compliance Status:** [Fully Compliant / Partially Compliant / Non-Compliant / No Relevant Policy Found]
**Gap Analysis:** [Your analysis explaining the gap, or why the policy is sufficient]
**Impacted Documents:** [Comma-separated document names from the 'Source:' markers]
**Recommended Action:** [One concrete step to close the gap]
**Confidence Score:** [e.g., 0.95]
**Risk Level:** [Low / Medium / High / Critical]`

// Analyzer classifies compliance status for each mandate against the
// indexed internal policies.
type Analyzer struct {
	client   llm.Client
	store    *index.Store
	provider embedding.Provider
	workers  int
	k        int
	log      zerolog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithWorkers sets the bounded worker pool size.
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithTopK sets how many policy chunks are retrieved per mandate.
func WithTopK(k int) AnalyzerOption {
	return func(a *Analyzer) {
		if k > 0 {
			a.k = k
		}
	}
}

// NewAnalyzer creates an analyzer over the given policy store.
func NewAnalyzer(client llm.Client, store *index.Store, provider embedding.Provider, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		client:   client,
		store:    store,
		provider: provider,
		workers:  DefaultWorkers,
		k:        DefaultTopK,
		log:      logger.For("audit"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces exactly one Finding per extracted mandate, in
// extraction order. A failed extraction passes through untouched: no
// retrieval or generation happens and the extraction error is returned
// as-is. One mandate's failure never aborts the rest; it becomes an
// explicit error Finding in its slot.
func (a *Analyzer) Analyze(ctx context.Context, ext mandate.Extraction) ([]Finding, error) {
	if ext.Err != nil {
		return nil, ext.Err
	}
	if len(ext.Mandates) == 0 {
		return nil, nil
	}

	findings := make([]Finding, len(ext.Mandates))
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup

	for i := range ext.Mandates {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			m := ext.Mandates[idx]
			if err := ctx.Err(); err != nil {
				findings[idx] = errorFinding(m, fmt.Errorf("analysis cancelled: %w", err))
				return
			}

			// No mutex needed, each goroutine writes only its own slot.
			findings[idx] = a.analyzeMandate(ctx, m)
		}(i)
	}
	wg.Wait()

	return findings, nil
}

// analyzeMandate runs retrieval plus one generation call for a single
// mandate and parses the verdict.
func (a *Analyzer) analyzeMandate(ctx context.Context, m mandate.Mandate) Finding {
	contextText := a.retrieveContext(ctx, buildQuery(m))

	prompt := fmt.Sprintf(analysisPrompt, m.Title, m.Category, m.Requirement, m.Specifics, contextText)
	response, err := a.client.Complete(ctx, prompt, 0)
	if err != nil {
		a.log.Warn().Err(err).Str("mandate", m.Title).Msg("gap analysis call failed")
		return errorFinding(m, fmt.Errorf("gap analysis: %w", err))
	}

	if len(strings.TrimSpace(response)) < minAnalysisChars {
		return errorFinding(m, fmt.Errorf("insufficient analysis: response was %d characters", len(strings.TrimSpace(response))))
	}

	finding := parseFinding(m, response)
	if finding.Status == StatusUnknown || finding.Risk == RiskUnknown {
		a.log.Warn().
			Str("mandate", m.Title).
			Str("status", string(finding.Status)).
			Str("risk", string(finding.Risk)).
			Msg("model returned unrecognized classification labels")
	}
	return finding
}

// buildQuery concatenates the mandate fields that best describe what to
// look for in the policy corpus.
func buildQuery(m mandate.Mandate) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Title, m.Requirement, m.Specifics} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// retrieveContext fetches the k nearest policy chunks and joins them.
// Retrieval failure degrades to the fixed no-context string so the
// mandate is still analyzed instead of dropped.
func (a *Analyzer) retrieveContext(ctx context.Context, query string) string {
	chunks, err := a.store.Retrieve(ctx, a.provider, query, a.k)
	if err != nil {
		a.log.Warn().Err(err).Msg("context retrieval failed, analyzing without policy context")
		return noContextFound
	}
	if len(chunks) == 0 {
		return noContextFound
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, contextSeparator)
}

// errorFinding builds the explicit per-mandate error record. Reports
// embed findings verbatim, so even a failure carries enough text to act
// on.
func errorFinding(m mandate.Mandate, err error) Finding {
	return Finding{
		Mandate:           m,
		Status:            StatusUnknown,
		GapDescription:    "Analysis did not complete: " + err.Error(),
		RecommendedAction: "Re-run the analysis for this mandate.",
		Risk:              RiskUnknown,
		Err:               err.Error(),
	}
}
