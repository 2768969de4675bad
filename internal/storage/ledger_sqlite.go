package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// FetchedRule is one SEC rulemaking document the fetcher has already
// downloaded, keyed by its detail-page URL.
type FetchedRule struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Date      string    `json:"date,omitempty"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	PDFPath   string    `json:"pdf_path,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// MarkFetched records a downloaded rule so later runs skip it.
func (d *DB) MarkFetched(rule FetchedRule) error {
	fetchedAt := rule.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO fetched_rules (url, title, date, pdf_url, pdf_path, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rule.URL,
		nullableStringValue(rule.Title),
		nullableStringValue(rule.Date),
		nullableStringValue(rule.PDFURL),
		nullableStringValue(rule.PDFPath),
		fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("marking rule fetched: %w", err)
	}
	return nil
}

// IsFetched reports whether a rule URL has already been downloaded.
func (d *DB) IsFetched(url string) (bool, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM fetched_rules WHERE url = ?", url).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFetched returns all downloaded rules, most recent first.
func (d *DB) ListFetched() ([]FetchedRule, error) {
	rows, err := d.db.Query(`
		SELECT url, title, date, pdf_url, pdf_path, fetched_at
		FROM fetched_rules
		ORDER BY fetched_at DESC, url
	`)
	if err != nil {
		return nil, fmt.Errorf("querying fetched rules: %w", err)
	}
	defer rows.Close()

	var rules []FetchedRule
	for rows.Next() {
		var rule FetchedRule
		var title, date, pdfURL, pdfPath sql.NullString
		var fetchedAt int64

		if err := rows.Scan(&rule.URL, &title, &date, &pdfURL, &pdfPath, &fetchedAt); err != nil {
			return nil, err
		}
		rule.Title = title.String
		rule.Date = date.String
		rule.PDFURL = pdfURL.String
		rule.PDFPath = pdfPath.String
		rule.FetchedAt = time.Unix(fetchedAt, 0).UTC()

		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CountFetched returns the number of downloaded rules.
func (d *DB) CountFetched() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM fetched_rules").Scan(&count)
	return count, err
}
