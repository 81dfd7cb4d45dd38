package sqlite

import (
	"context"
	"fmt"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

const createJobsTableSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT,
    title TEXT,
    company TEXT,
    description TEXT,
    url TEXT UNIQUE NOT NULL,
    location TEXT,
    source TEXT,
    status TEXT NOT NULL DEFAULT 'new',
    captured_at TEXT,
    payload_json TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT,
    resume_pdf_path TEXT,
    resume_written_at TEXT,
    run_id TEXT,
    attempt_count INTEGER DEFAULT 0,
    last_error TEXT
)`

const createStatusIndexSQL = `CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`

// finalizeColumns is the audit column set the two-phase finalize requires.
var finalizeColumns = []string{
	"updated_at",
	"resume_pdf_path",
	"resume_written_at",
	"run_id",
	"attempt_count",
	"last_error",
}

// ensureSchema creates the jobs table and its status index. Idempotent.
func ensureSchema(ctx context.Context, db *DB) error {
	if _, err := db.SQL().ExecContext(ctx, createJobsTableSQL); err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	if _, err := db.SQL().ExecContext(ctx, createStatusIndexSQL); err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	return nil
}

// tableColumns returns the column names of the jobs table.
func tableColumns(ctx context.Context, db *DB) (map[string]bool, error) {
	rows, err := db.SQL().QueryContext(ctx, `PRAGMA table_info(jobs)`)
	if err != nil {
		return nil, models.NewDBError(common.SanitizeError(err))
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, models.NewDBError(common.SanitizeError(err))
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewDBError(common.SanitizeError(err))
	}
	return columns, nil
}

// preflightColumns fails with a migration-required DB_ERROR when any of the
// required columns is missing from the jobs table.
func preflightColumns(ctx context.Context, db *DB, required []string) error {
	columns, err := tableColumns(ctx, db)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return models.NewDBError("jobs table is missing; migration required")
	}
	for _, col := range required {
		if !columns[col] {
			return models.NewDBError(fmt.Sprintf("jobs table is missing column '%s'; migration required", col))
		}
	}
	return nil
}
