package sqlite

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// JobsIngestWriter persists normalized scrape records with idempotent
// URL-keyed dedupe. It is the only storage scope allowed to create the
// database file and bootstrap schema.
type JobsIngestWriter struct {
	db     *DB
	logger arbor.ILogger
}

var _ interfaces.JobsIngestWriter = (*JobsIngestWriter)(nil)

// NewJobsIngestWriter opens (or creates) the database for ingestion.
func NewJobsIngestWriter(logger arbor.ILogger, dbPath string, opts Options) (*JobsIngestWriter, error) {
	db, err := OpenOrCreate(logger, dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &JobsIngestWriter{db: db, logger: logger}, nil
}

// Close releases the underlying connection.
func (w *JobsIngestWriter) Close() error {
	return w.db.Close()
}

// EnsureSchema creates the jobs table and idx_jobs_status. Idempotent.
func (w *JobsIngestWriter) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, w.db)
}

// InsertCleaned inserts records inside one transaction using INSERT OR
// IGNORE keyed on url. A dedupe hit on a live row never alters any
// existing field, including status.
func (w *JobsIngestWriter) InsertCleaned(ctx context.Context, records []models.CleanedRecord, status models.JobStatus) (int, int, error) {
	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return 0, 0, models.NewDBError(common.SanitizeError(err))
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO jobs
		 (job_id, title, company, description, url, location, source, status, captured_at, payload_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, 0, models.NewDBError(common.SanitizeError(err))
	}
	defer stmt.Close()

	inserted := 0
	duplicates := 0
	now := FormatTimestamp(time.Now())
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx,
			nullable(rec.JobID), nullable(rec.Title), nullable(rec.Company), nullable(rec.Description),
			rec.URL, nullable(rec.Location), nullable(rec.Source), string(status),
			FormatTimestamp(rec.CapturedAt), rec.PayloadJSON, now, now)
		if err != nil {
			tx.Rollback()
			return 0, 0, models.NewDBError(common.SanitizeError(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, 0, models.NewDBError(common.SanitizeError(err))
		}
		if affected == 1 {
			inserted++
		} else {
			duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, models.NewDBError(common.SanitizeError(err))
	}
	return inserted, duplicates, nil
}

// nullable converts empty strings to NULL so empty and missing values
// converge in storage.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
