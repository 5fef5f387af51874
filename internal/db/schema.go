package db

// Schema for one pipeline pass over one domain
const createScanRunsTable = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    domain TEXT NOT NULL,
    started_at TEXT NOT NULL,
    output_dir TEXT,
    raw_file TEXT,
    cleaned_file TEXT,
    raw_count INTEGER NOT NULL DEFAULT 0,
    clean_count INTEGER NOT NULL DEFAULT 0,
    command TEXT,
    executed INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_domain ON scan_runs(domain);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);
`

// Schema for archive records captured during a run
const createWaybackRecordsTable = `
CREATE TABLE IF NOT EXISTS wayback_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    domain TEXT NOT NULL,
    timestamp TEXT,
    status_code INTEGER,
    mime_type TEXT,
    is_clean INTEGER NOT NULL DEFAULT 0,
    fetched_at TEXT NOT NULL,
    UNIQUE(run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_wayback_records_run ON wayback_records(run_id);
CREATE INDEX IF NOT EXISTS idx_wayback_records_domain ON wayback_records(domain);
`

const insertScanRun = `
INSERT INTO scan_runs (
    domain, started_at, output_dir, raw_file, cleaned_file,
    raw_count, clean_count, command, executed, status, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertWaybackRecord = `
INSERT OR IGNORE INTO wayback_records (
    run_id, url, domain, timestamp, status_code, mime_type, is_clean, fetched_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Empty filter values (domain '', status '') match every row
const selectScanRuns = `
SELECT id, domain, started_at, COALESCE(output_dir, ''), COALESCE(raw_file, ''),
       COALESCE(cleaned_file, ''), raw_count, clean_count, COALESCE(command, ''),
       executed, status, COALESCE(error, '')
FROM scan_runs
WHERE (? = '' OR domain = ?) AND (? = '' OR status = ?)
ORDER BY started_at DESC, id DESC
LIMIT ?
`

const selectDomainRunStats = `
SELECT domain, COUNT(*) AS run_count, MAX(started_at) AS last_run, SUM(clean_count) AS total_clean
FROM scan_runs
WHERE (? = '' OR domain = ?)
GROUP BY domain
ORDER BY last_run DESC
`

const selectWaybackRecordsByRun = `
SELECT id, url, domain, COALESCE(timestamp, ''), status_code, mime_type, fetched_at
FROM wayback_records
WHERE run_id = ? AND (? = 0 OR is_clean = 1)
ORDER BY id
`

const deleteScanRun = `
DELETE FROM scan_runs WHERE id = ?
`
