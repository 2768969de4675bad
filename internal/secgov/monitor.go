// Package secgov discovers and downloads SEC rulemaking documents.
//
// The SEC publishes recent rulemaking activity as an HTML listing; each
// entry links to a detail page that in turn links to the rule's PDF. The
// monitor scrapes the listing, resolves the best PDF link per rule,
// downloads it into the rules directory, and records the rule in the
// fetch ledger so later polls skip it.
package secgov

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/complykit/regap/internal/logger"
	"github.com/complykit/regap/internal/storage"
)

const (
	// BaseURL is the SEC website root.
	BaseURL = "https://www.sec.gov"

	// rulemakingPath lists recent rulemaking activity.
	rulemakingPath = "/rules-regulations/rulemaking-activity"

	// DefaultUserAgent identifies the client to the SEC, which rejects
	// anonymous scrapers. Production deployments should override it with
	// a real contact address.
	DefaultUserAgent = "regap-compliance-monitor/1.0 (compliance@complykit.example)"

	// DefaultLimit caps how many rulemakings one poll examines.
	DefaultLimit = 5

	// DefaultRateLimit spaces requests two seconds apart out of courtesy
	// to the SEC servers.
	DefaultRateLimit = 0.5

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 60 * time.Second
)

// ErrNoPDFLink reports a rule detail page with no usable PDF link.
var ErrNoPDFLink = errors.New("no PDF link found on rule page")

var (
	// ruleLinkRe matches anchors pointing at rule detail pages, which
	// embed the year in their path.
	ruleLinkRe = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*/rules-regulations/20[^"]*)"[^>]*>(.*?)</a>`)

	// pdfLinkRe matches anchors pointing at PDF files.
	pdfLinkRe = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*\.pdf[^"]*)"[^>]*>(.*?)</a>`)

	// tagRe strips nested markup from anchor text.
	tagRe = regexp.MustCompile(`<[^>]*>`)

	// ruleDateRe captures the year and month embedded in a detail-page URL.
	ruleDateRe = regexp.MustCompile(`/rules-regulations/(20\d{2})/(\d{2})/`)
)

// Monitor polls the SEC rulemaking feed and downloads new rules.
type Monitor struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
	rulesDir   string
	db         *storage.DB
	limit      int
	log        zerolog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Monitor) {
		m.httpClient = hc
	}
}

// WithBaseURL sets a custom site root (for testing).
func WithBaseURL(u string) Option {
	return func(m *Monitor) {
		m.baseURL = strings.TrimRight(u, "/")
	}
}

// WithUserAgent sets the User-Agent header sent to the SEC.
func WithUserAgent(ua string) Option {
	return func(m *Monitor) {
		if ua != "" {
			m.userAgent = ua
		}
	}
}

// WithLimit caps how many rulemakings one poll examines.
func WithLimit(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithRateLimit overrides the request pacing, in requests per second.
func WithRateLimit(rps float64) Option {
	return func(m *Monitor) {
		if rps > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewMonitor creates a monitor that records downloads in db and stores
// PDFs under rulesDir.
func NewMonitor(db *storage.DB, rulesDir string, opts ...Option) *Monitor {
	m := &Monitor{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    BaseURL,
		userAgent:  DefaultUserAgent,
		rulesDir:   rulesDir,
		db:         db,
		limit:      DefaultLimit,
		log:        logger.For("secgov"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LatestRulemakings scrapes the activity page for recent rule entries,
// newest-listed first, up to the configured limit.
func (m *Monitor) LatestRulemakings(ctx context.Context) ([]storage.FetchedRule, error) {
	page, err := m.get(ctx, m.baseURL+rulemakingPath)
	if err != nil {
		return nil, fmt.Errorf("fetching rulemaking activity: %w", err)
	}

	seen := make(map[string]bool)
	var rules []storage.FetchedRule
	for _, match := range ruleLinkRe.FindAllStringSubmatch(string(page), -1) {
		href := m.resolveURL(match[1])
		if seen[href] {
			continue
		}
		seen[href] = true

		rules = append(rules, storage.FetchedRule{
			URL:   href,
			Title: anchorText(match[2]),
			Date:  ruleDate(href),
		})
		if len(rules) >= m.limit {
			break
		}
	}

	m.log.Info().Int("count", len(rules)).Msg("rulemakings discovered")
	return rules, nil
}

// ExtractPDFLink finds the best PDF link on a rule's detail page. Links
// labeled as the final or full document win over generic rule links,
// which win over everything else; ties keep document order.
func (m *Monitor) ExtractPDFLink(ctx context.Context, pageURL string) (string, error) {
	page, err := m.get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetching rule page: %w", err)
	}

	best := -1
	bestURL := ""
	for _, match := range pdfLinkRe.FindAllStringSubmatch(string(page), -1) {
		href := m.resolveURL(match[1])
		label := strings.ToLower(anchorText(match[2]))

		priority := 0
		switch {
		case strings.Contains(label, "final") || strings.Contains(label, "full") || strings.Contains(label, "complete"):
			priority = 2
		case strings.Contains(label, "rule") || strings.Contains(label, "document"):
			priority = 1
		}

		if priority > best {
			best = priority
			bestURL = href
		}
	}

	if bestURL == "" {
		return "", ErrNoPDFLink
	}
	return bestURL, nil
}

// DownloadPDF fetches a PDF and saves it under the rules directory,
// returning the local path.
func (m *Monitor) DownloadPDF(ctx context.Context, pdfURL string) (string, error) {
	data, err := m.get(ctx, pdfURL)
	if err != nil {
		return "", fmt.Errorf("downloading PDF: %w", err)
	}

	if err := os.MkdirAll(m.rulesDir, 0755); err != nil {
		return "", fmt.Errorf("creating rules directory: %w", err)
	}

	dest := filepath.Join(m.rulesDir, pdfFileName(pdfURL))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("saving PDF: %w", err)
	}

	m.log.Info().Str("path", dest).Int("bytes", len(data)).Msg("PDF downloaded")
	return dest, nil
}

// ProcessNewRules polls the SEC site and downloads every rule not yet in
// the fetch ledger. Failures on individual rules are logged and skipped;
// the poll continues with the rest.
func (m *Monitor) ProcessNewRules(ctx context.Context) ([]storage.FetchedRule, error) {
	rules, err := m.LatestRulemakings(ctx)
	if err != nil {
		return nil, err
	}

	var processed []storage.FetchedRule
	for _, rule := range rules {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		fetched, err := m.db.IsFetched(rule.URL)
		if err != nil {
			return processed, fmt.Errorf("checking fetch ledger: %w", err)
		}
		if fetched {
			m.log.Debug().Str("url", rule.URL).Msg("rule already fetched, skipping")
			continue
		}

		m.log.Info().Str("title", rule.Title).Str("url", rule.URL).Msg("new rule found")

		pdfURL, err := m.ExtractPDFLink(ctx, rule.URL)
		if err != nil {
			m.log.Warn().Err(err).Str("url", rule.URL).Msg("skipping rule without PDF")
			continue
		}

		pdfPath, err := m.DownloadPDF(ctx, pdfURL)
		if err != nil {
			m.log.Warn().Err(err).Str("pdf_url", pdfURL).Msg("skipping rule, download failed")
			continue
		}

		rule.PDFURL = pdfURL
		rule.PDFPath = pdfPath
		rule.FetchedAt = time.Now()
		if err := m.db.MarkFetched(rule); err != nil {
			return processed, fmt.Errorf("recording fetched rule: %w", err)
		}

		processed = append(processed, rule)
	}

	m.log.Info().Int("new", len(processed)).Int("examined", len(rules)).Msg("poll complete")
	return processed, nil
}

// get performs a rate-limited GET with the monitor's User-Agent and
// returns the response body.
func (m *Monitor) get(ctx context.Context, u string) ([]byte, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// resolveURL makes site-relative hrefs absolute.
func (m *Monitor) resolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return m.baseURL + href
}

// anchorText flattens an anchor's inner HTML to plain text.
func anchorText(inner string) string {
	text := tagRe.ReplaceAllString(inner, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// ruleDate derives a year-month date from the detail-page URL, the one
// reliably machine-readable date on the listing page.
func ruleDate(pageURL string) string {
	match := ruleDateRe.FindStringSubmatch(pageURL)
	if match == nil {
		return ""
	}
	return match[1] + "-" + match[2]
}

// pdfFileName takes the file name from the PDF URL, falling back to a
// generic name when the URL has no usable final segment.
func pdfFileName(pdfURL string) string {
	name := ""
	if u, err := url.Parse(pdfURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = "rule.pdf"
	}
	return name
}
