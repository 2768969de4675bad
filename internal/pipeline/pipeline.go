// Package pipeline orchestrates the end-to-end gap-analysis run: load
// or build the internal policy index, optionally poll the SEC
// rulemaking feed, analyze each regulation PDF into a durable record,
// and synthesize the consolidated report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/complykit/regap/internal/audit"
	"github.com/complykit/regap/internal/chunk"
	"github.com/complykit/regap/internal/embedding"
	"github.com/complykit/regap/internal/index"
	"github.com/complykit/regap/internal/llm"
	"github.com/complykit/regap/internal/logger"
	"github.com/complykit/regap/internal/mandate"
	"github.com/complykit/regap/internal/pdf"
	"github.com/complykit/regap/internal/report"
	"github.com/complykit/regap/internal/secgov"
	"github.com/complykit/regap/internal/storage"
)

// ErrNoReadableDocuments reports that no internal policy document
// yielded any text, so there is nothing to index.
var ErrNoReadableDocuments = errors.New("no readable documents")

// ErrNoRegulationPDFs reports an empty rules directory: a run has
// nothing to analyze.
var ErrNoRegulationPDFs = errors.New("no regulation PDFs found")

// ErrNoRegulationsAnalyzed reports that every regulation in a run was
// skipped. A report over zero regulations would be meaningless, so the
// run aborts instead.
var ErrNoRegulationsAnalyzed = errors.New("no regulations were successfully analyzed")

// Options wires a Pipeline. Indexing needs Provider; analysis also
// needs Client, and Run additionally needs DB. Monitor is optional;
// without one, runs cannot fetch new rules.
type Options struct {
	DocsDir    string // internal policy PDFs
	RulesDir   string // regulation PDFs to analyze
	ReportsDir string // report artifacts
	StoreDir   string // persisted index location

	Provider embedding.Provider
	Client   llm.Client
	DB       *storage.DB
	Monitor  *secgov.Monitor

	Workers int // concurrent per-mandate audits, defaults to audit.DefaultWorkers
	TopK    int // policy chunks retrieved per mandate, defaults to audit.DefaultTopK
}

// Pipeline runs the compliance workflow against explicit directories.
// All paths are fixed at construction; operations take only the inputs
// that vary per call.
type Pipeline struct {
	docsDir    string
	rulesDir   string
	reportsDir string
	storeDir   string

	provider embedding.Provider
	client   llm.Client
	db       *storage.DB
	monitor  *secgov.Monitor

	workers  int
	topK     int
	progress index.ProgressReporter
	log      zerolog.Logger
}

// New assembles a pipeline from the given wiring.
func New(opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = audit.DefaultWorkers
	}
	if opts.TopK <= 0 {
		opts.TopK = audit.DefaultTopK
	}
	return &Pipeline{
		docsDir:    opts.DocsDir,
		rulesDir:   opts.RulesDir,
		reportsDir: opts.ReportsDir,
		storeDir:   opts.StoreDir,
		provider:   opts.Provider,
		client:     opts.Client,
		db:         opts.DB,
		monitor:    opts.Monitor,
		workers:    opts.Workers,
		topK:       opts.TopK,
		log:        logger.For("pipeline"),
	}
}

// SetProgressReporter forwards index-build and analysis progress to the
// given reporter.
func (p *Pipeline) SetProgressReporter(reporter index.ProgressReporter) {
	p.progress = reporter
}

// BuildIndex extracts text from the given policy PDFs, chunks and
// embeds it, and persists the index to the store directory. Unreadable
// files are logged and skipped; the build fails only when no document
// yields any text.
func (p *Pipeline) BuildIndex(ctx context.Context, docPaths []string) (*index.Store, *index.BuildStats, error) {
	docs := make([]chunk.Document, 0, len(docPaths))
	for _, path := range docPaths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text, err := pdf.ExtractText(path, 0)
		if err != nil {
			p.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("skipping unreadable document")
			continue
		}
		docs = append(docs, chunk.Document{Name: filepath.Base(path), Text: text})
	}
	return p.indexDocuments(ctx, docs)
}

// indexDocuments chunks, embeds, and persists the given documents.
func (p *Pipeline) indexDocuments(ctx context.Context, docs []chunk.Document) (*index.Store, *index.BuildStats, error) {
	chunks := chunk.Split(docs)
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: no text could be extracted from the internal policies", ErrNoReadableDocuments)
	}

	builder := index.NewBuilder(p.provider)
	if p.progress != nil {
		builder.SetProgressReporter(p.progress)
	}
	store, stats, err := builder.Build(ctx, chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("building index: %w", err)
	}
	if err := store.Save(p.storeDir); err != nil {
		return nil, nil, fmt.Errorf("saving index: %w", err)
	}

	p.log.Info().
		Int("documents", stats.Documents).
		Int("chunks", stats.ChunksIndexed).
		Str("model", p.provider.ModelName()).
		Msg("policy index built")
	return store, stats, nil
}

// AnalyzeMeta labels one regulation for its stored record. Zero-value
// fields fall back to labels derived from the file name, which is how
// manually dropped files are identified.
type AnalyzeMeta struct {
	Title string
	URL   string
	Date  string
	RunID string
}

// Analyze runs the per-regulation flow against one PDF: extract its
// text, pull the mandates, audit each one against the policy index, and
// compose the durable record. Unreadable or too-short files return an
// error so callers can skip them; generation failures ride inside the
// record as explicit error text instead.
func (p *Pipeline) Analyze(ctx context.Context, regPath string, store *index.Store, meta AnalyzeMeta) (*storage.RegulationRecord, error) {
	text, err := pdf.ExtractText(regPath, 0)
	if err != nil {
		return nil, err
	}
	return p.analyzeText(ctx, filepath.Base(regPath), text, store, meta)
}

func (p *Pipeline) analyzeText(ctx context.Context, fileName, text string, store *index.Store, meta AnalyzeMeta) (*storage.RegulationRecord, error) {
	ext, err := mandate.NewExtractor(p.client).Extract(ctx, text)
	if errors.Is(err, mandate.ErrRegulationTooShort) {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	var findings []audit.Finding
	if ext.Err == nil {
		analyzer := audit.NewAnalyzer(p.client, store, p.provider,
			audit.WithWorkers(p.workers), audit.WithTopK(p.topK))
		if findings, err = analyzer.Analyze(ctx, ext); err != nil {
			return nil, fmt.Errorf("auditing %s: %w", fileName, err)
		}
	}

	rec := &storage.RegulationRecord{
		ID:             uuid.NewString(),
		Title:          meta.Title,
		SourceURL:      meta.URL,
		Date:           meta.Date,
		FileName:       fileName,
		MandatesText:   ext.Text(),
		FindingsText:   findingsText(ext, findings),
		MandateCount:   len(ext.Mandates),
		ConceptRelease: ext.ConceptRelease,
		Findings:       findings,
		AnalyzedAt:     time.Now().UTC(),
		RunID:          meta.RunID,
	}
	if rec.Title == "" {
		rec.Title = TitleFromFileName(fileName)
	}

	p.log.Info().
		Str("file", fileName).
		Int("mandates", rec.MandateCount).
		Bool("concept_release", rec.ConceptRelease).
		Msg("regulation analyzed")
	return rec, nil
}

// findingsText renders the stored findings narrative. A failed
// extraction reproduces the identical error text carried in the
// mandates column, so record and report stay in agreement; a concept
// release states the zero-mandate outcome explicitly. Stored text is
// never empty.
func findingsText(ext mandate.Extraction, findings []audit.Finding) string {
	if ext.Err != nil {
		return ext.Text()
	}
	if ext.ConceptRelease {
		return "Concept release: no actionable mandates were extracted, so no gap findings exist for this regulation."
	}
	if len(findings) == 0 {
		return "No gap findings were produced for this regulation."
	}

	blocks := make([]string, len(findings))
	for i, f := range findings {
		blocks[i] = f.Text()
	}
	return strings.Join(blocks, "\n\n")
}

// SynthesizeReport writes the consolidated report artifact for the
// given records. An empty record set is an error: a report has to
// describe at least one analyzed regulation.
func (p *Pipeline) SynthesizeReport(ctx context.Context, records []storage.RegulationRecord, run report.RunInfo) (string, string, error) {
	text, err := report.NewSynthesizer(p.client).Consolidated(ctx, records, run)
	if err != nil {
		return "", "", err
	}
	path, err := report.Write(p.reportsDir, text, run.GeneratedAt)
	if err != nil {
		return "", "", err
	}
	p.log.Info().Str("path", path).Int("regulations", len(records)).Msg("consolidated report written")
	return text, path, nil
}

// RunOptions controls one end-to-end run.
type RunOptions struct {
	// Fetch polls the SEC rulemaking feed for new rules before the
	// analysis loop. Requires a wired monitor.
	Fetch bool
}

// RunResult summarizes an end-to-end run.
type RunResult struct {
	RunID      string
	IndexBuilt bool     // the policy index was built during this run
	NewRules   int      // PDFs downloaded by the fetch step
	Analyzed   int      // regulations that produced a record
	Skipped    []string // file names that could not be analyzed
	ReportPath string
	Report     string
}

// Run executes the whole workflow: load or build the policy index,
// optionally fetch new rules, analyze every regulation PDF in the rules
// directory, persist each record, and synthesize the consolidated
// report. Individual regulations that cannot be read are skipped; a run
// in which every regulation is skipped aborts without a report.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{RunID: NewRunID(time.Now())}
	log := p.log.With().Str("run_id", result.RunID).Logger()

	store, built, err := p.loadOrBuildIndex(ctx)
	if err != nil {
		return nil, err
	}
	result.IndexBuilt = built

	metaByPath := make(map[string]storage.FetchedRule)
	if opts.Fetch {
		rules := p.fetchNewRules(ctx)
		result.NewRules = len(rules)
		for _, rule := range rules {
			metaByPath[rule.PDFPath] = rule
		}
	}

	regPaths, err := pdf.List(p.rulesDir)
	if err != nil {
		return nil, fmt.Errorf("listing regulations: %w", err)
	}
	if len(regPaths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRegulationPDFs, p.rulesDir)
	}
	log.Info().Int("regulations", len(regPaths)).Msg("starting analysis")

	var records []storage.RegulationRecord
	for i, regPath := range regPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.progress != nil {
			p.progress.OnProgress(i, len(regPaths))
		}

		meta := AnalyzeMeta{RunID: result.RunID}
		if rule, ok := metaByPath[regPath]; ok {
			meta.Title = rule.Title
			meta.URL = rule.URL
			meta.Date = rule.Date
		}

		rec, err := p.Analyze(ctx, regPath, store, meta)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Str("file", filepath.Base(regPath)).Msg("skipping regulation")
			result.Skipped = append(result.Skipped, filepath.Base(regPath))
			continue
		}
		if err := p.db.SaveRecord(rec); err != nil {
			return nil, fmt.Errorf("saving record for %s: %w", rec.FileName, err)
		}
		records = append(records, *rec)
	}
	if p.progress != nil {
		p.progress.OnProgress(len(regPaths), len(regPaths))
	}

	result.Analyzed = len(records)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: all %d regulations were skipped", ErrNoRegulationsAnalyzed, len(regPaths))
	}

	text, path, err := p.SynthesizeReport(ctx, records, report.RunInfo{
		RunID:       result.RunID,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	result.Report = text
	result.ReportPath = path

	log.Info().
		Int("analyzed", result.Analyzed).
		Int("skipped", len(result.Skipped)).
		Str("report", path).
		Msg("run complete")
	return result, nil
}

// loadOrBuildIndex loads the persisted policy index, building it from
// the docs directory when none exists yet. A corrupt or incompatible
// index is surfaced, not silently rebuilt.
func (p *Pipeline) loadOrBuildIndex(ctx context.Context) (*index.Store, bool, error) {
	store, err := index.Load(p.storeDir)
	if err == nil {
		return store, false, nil
	}
	if !errors.Is(err, index.ErrStoreNotFound) {
		return nil, false, fmt.Errorf("loading index: %w", err)
	}

	p.log.Info().Str("dir", p.docsDir).Msg("no policy index found, building one")
	docPaths, err := pdf.List(p.docsDir)
	if err != nil {
		return nil, false, fmt.Errorf("listing internal documents: %w", err)
	}
	if len(docPaths) == 0 {
		return nil, false, fmt.Errorf("%w: no internal policy PDFs in %s", ErrNoReadableDocuments, p.docsDir)
	}

	store, _, err = p.BuildIndex(ctx, docPaths)
	if err != nil {
		return nil, false, err
	}
	return store, true, nil
}

// fetchNewRules polls the SEC feed. Poll failures degrade to an empty
// result so the run proceeds with whatever PDFs are already on disk.
func (p *Pipeline) fetchNewRules(ctx context.Context) []storage.FetchedRule {
	if p.monitor == nil {
		p.log.Warn().Msg("fetch requested but no SEC monitor is configured")
		return nil
	}
	rules, err := p.monitor.ProcessNewRules(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("SEC rulemaking poll failed, continuing with existing files")
		return nil
	}
	return rules
}

// NewRunID returns the identifier for one end-to-end run: a
// second-resolution timestamp for humans plus a short random suffix for
// uniqueness.
func NewRunID(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// TitleFromFileName derives a display title from a PDF file name:
// the extension is stripped, underscores become spaces, and each word
// is capitalized. "cybersecurity_risk_management.pdf" becomes
// "Cybersecurity Risk Management".
func TitleFromFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	words := strings.Fields(strings.ReplaceAll(base, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
