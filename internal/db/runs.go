package db

import (
	"database/sql"
	"fmt"

	"github.com/thesavant42/sqlihunter/internal/filter"
	"github.com/thesavant42/sqlihunter/internal/models"
)

const defaultRunLimit = 50

// RecordRun stores a run together with the archive records it fetched.
// Records whose URL (fragment removed) appears in cleaned are flagged clean.
// run.ID is set on success.
func (db *DB) RecordRun(run *models.ScanRun, records []models.CDXRecord, cleaned []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(insertScanRun,
		run.Domain,
		formatTimestamp(run.StartedAt),
		run.OutputDir,
		run.RawFile,
		run.CleanedFile,
		run.RawCount,
		run.CleanCount,
		run.Command,
		run.Executed,
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read scan run id: %w", err)
	}

	if len(records) > 0 {
		clean := make(map[string]bool, len(cleaned))
		for _, u := range cleaned {
			clean[u] = true
		}

		stmt, err := tx.Prepare(insertWaybackRecord)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			var statusCode interface{}
			if r.StatusCode != nil {
				statusCode = *r.StatusCode
			}

			var mimeType interface{}
			if r.MimeType != nil {
				mimeType = *r.MimeType
			}

			isClean := clean[filter.StripFragment(r.URL)]
			if _, err := stmt.Exec(runID, r.URL, r.Domain, r.Timestamp, statusCode, mimeType, isClean, formatTimestamp(r.FetchedAt)); err != nil {
				return fmt.Errorf("failed to insert wayback record %s: %w", r.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	run.ID = runID
	return nil
}

// GetScanRuns returns the most recent runs matching filter
func (db *DB) GetScanRuns(f models.RunFilter) ([]models.ScanRun, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}
	status := string(f.Status)

	rows, err := db.conn.Query(selectScanRuns, f.Domain, f.Domain, status, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ScanRun
	for rows.Next() {
		var r models.ScanRun
		var startedAt, status string
		if err := rows.Scan(
			&r.ID, &r.Domain, &startedAt, &r.OutputDir, &r.RawFile, &r.CleanedFile,
			&r.RawCount, &r.CleanCount, &r.Command, &r.Executed, &status, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = parseTimestamp(startedAt)
		r.Status = models.RunStatus(status)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetDomainRunStats returns per-domain totals, most recently run first.
// A non-empty domain restricts the result to that domain.
func (db *DB) GetDomainRunStats(domain string) ([]models.DomainRunStats, error) {
	rows, err := db.conn.Query(selectDomainRunStats, domain, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DomainRunStats
	for rows.Next() {
		var s models.DomainRunStats
		var lastRun string
		if err := rows.Scan(&s.Domain, &s.RunCount, &lastRun, &s.TotalClean); err != nil {
			return nil, fmt.Errorf("failed to scan domain stats: %w", err)
		}
		s.LastRunAt, _ = parseTimestamp(lastRun)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetRunRecords returns the archive records stored for a run.
// With cleanOnly set, only records that made it into the cleaned list.
func (db *DB) GetRunRecords(runID int64, cleanOnly bool) ([]models.CDXRecord, error) {
	rows, err := db.conn.Query(selectWaybackRecordsByRun, runID, cleanOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query wayback records: %w", err)
	}
	defer rows.Close()

	return scanWaybackRecords(rows)
}

// DeleteScanRun removes a run and its records
func (db *DB) DeleteScanRun(id int64) error {
	if _, err := db.conn.Exec(deleteScanRun, id); err != nil {
		return fmt.Errorf("failed to delete scan run: %w", err)
	}
	return nil
}

// scanWaybackRecords scans rows into CDXRecord structs
func scanWaybackRecords(rows *sql.Rows) ([]models.CDXRecord, error) {
	var records []models.CDXRecord
	for rows.Next() {
		var r models.CDXRecord
		var fetchedAt string
		var statusCode sql.NullInt64
		var mimeType sql.NullString

		if err := rows.Scan(&r.ID, &r.URL, &r.Domain, &r.Timestamp, &statusCode, &mimeType, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wayback record: %w", err)
		}

		if statusCode.Valid {
			code := int(statusCode.Int64)
			r.StatusCode = &code
		}
		if mimeType.Valid {
			mt := mimeType.String
			r.MimeType = &mt
		}
		r.FetchedAt, _ = parseTimestamp(fetchedAt)

		records = append(records, r)
	}

	return records, rows.Err()
}
