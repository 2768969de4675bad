package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/complykit/regap/internal/audit"
)

// RegulationRecord is the durable outcome of analyzing one regulation:
// the extracted mandates, the per-mandate gap findings, and enough
// provenance to rebuild a report without re-running the models.
type RegulationRecord struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	SourceURL      string          `json:"source_url,omitempty"`
	Date           string          `json:"date,omitempty"`
	FileName       string          `json:"file_name"`
	MandatesText   string          `json:"mandates_text"`
	FindingsText   string          `json:"findings_text"`
	MandateCount   int             `json:"mandate_count"`
	ConceptRelease bool            `json:"concept_release"`
	Findings       []audit.Finding `json:"findings,omitempty"`
	AnalyzedAt     time.Time       `json:"analyzed_at"`
	RunID          string          `json:"run_id"`
}

// selectRecordFields contains the standard field list for SELECT queries.
const selectRecordFields = `id, title, source_url, date, file_name,
	mandates_text, findings_text, mandate_count, concept_release,
	findings_json, analyzed_at, run_id`

// SaveRecord inserts or replaces a regulation record.
func (d *DB) SaveRecord(rec *RegulationRecord) error {
	var findingsJSON []byte
	if len(rec.Findings) > 0 {
		var err error
		findingsJSON, err = json.Marshal(rec.Findings)
		if err != nil {
			return fmt.Errorf("marshaling findings for %s: %w", rec.ID, err)
		}
	}

	conceptRelease := 0
	if rec.ConceptRelease {
		conceptRelease = 1
	}

	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO regulation_records (
			id, title, source_url, date, file_name,
			mandates_text, findings_text, mandate_count, concept_release,
			findings_json, analyzed_at, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Title, nullableStringValue(rec.SourceURL), nullableStringValue(rec.Date), rec.FileName,
		rec.MandatesText, rec.FindingsText, rec.MandateCount, conceptRelease,
		nullableString(findingsJSON), rec.AnalyzedAt.Unix(), rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord retrieves a regulation record by ID.
// Returns nil without error when no record exists.
func (d *DB) GetRecord(id string) (*RegulationRecord, error) {
	row := d.db.QueryRow(`
		SELECT `+selectRecordFields+`
		FROM regulation_records
		WHERE id = ?
	`, id)

	return scanRecord(row)
}

// ListRecords returns all regulation records, most recently analyzed first.
func (d *DB) ListRecords() ([]RegulationRecord, error) {
	rows, err := d.db.Query(`
		SELECT ` + selectRecordFields + `
		FROM regulation_records
		ORDER BY analyzed_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRecordsByRun returns the records produced by one analysis run,
// oldest first.
func (d *DB) ListRecordsByRun(runID string) ([]RegulationRecord, error) {
	rows, err := d.db.Query(`
		SELECT `+selectRecordFields+`
		FROM regulation_records
		WHERE run_id = ?
		ORDER BY analyzed_at, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountRecords returns the total number of regulation records.
func (d *DB) CountRecords() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM regulation_records").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanRecord(s scanner) (*RegulationRecord, error) {
	var rec RegulationRecord
	var sourceURL, date, findingsJSON sql.NullString
	var conceptRelease int
	var analyzedAt int64

	err := s.Scan(
		&rec.ID, &rec.Title, &sourceURL, &date, &rec.FileName,
		&rec.MandatesText, &rec.FindingsText, &rec.MandateCount, &conceptRelease,
		&findingsJSON, &analyzedAt, &rec.RunID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.SourceURL = sourceURL.String
	rec.Date = date.String
	rec.ConceptRelease = conceptRelease != 0
	rec.AnalyzedAt = time.Unix(analyzedAt, 0).UTC()

	if findingsJSON.Valid && findingsJSON.String != "" {
		if err := json.Unmarshal([]byte(findingsJSON.String), &rec.Findings); err != nil {
			return nil, fmt.Errorf("parsing findings JSON for %s: %w", rec.ID, err)
		}
	}

	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]RegulationRecord, error) {
	var records []RegulationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
