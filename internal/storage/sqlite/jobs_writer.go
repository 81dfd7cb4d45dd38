package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// JobsStatusWriter mutates job status and finalize audit fields. Batch
// mutations run inside an explicit transaction opened with Begin; the
// finalize/fallback primitives each manage their own transaction when none
// is open.
type JobsStatusWriter struct {
	db     *DB
	logger arbor.ILogger
	tx     *sql.Tx
}

var _ interfaces.JobsStatusWriter = (*JobsStatusWriter)(nil)

// NewJobsStatusWriter opens a status writer over an existing database.
func NewJobsStatusWriter(logger arbor.ILogger, dbPath string, opts Options) (*JobsStatusWriter, error) {
	db, err := Open(logger, dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &JobsStatusWriter{db: db, logger: logger}, nil
}

// Close rolls back any open transaction and releases the connection.
func (w *JobsStatusWriter) Close() error {
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}
	return w.db.Close()
}

// PreflightUpdateColumns verifies updated_at exists before bulk updates.
func (w *JobsStatusWriter) PreflightUpdateColumns(ctx context.Context) error {
	return preflightColumns(ctx, w.db, []string{"updated_at"})
}

// PreflightFinalizeColumns verifies the full audit column set exists.
func (w *JobsStatusWriter) PreflightFinalizeColumns(ctx context.Context) error {
	return preflightColumns(ctx, w.db, finalizeColumns)
}

// JobExists reports whether a row with the given id exists.
func (w *JobsStatusWriter) JobExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := w.db.SQL().QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, models.NewDBError(common.SanitizeError(err))
	}
	return true, nil
}

// Begin opens the batch transaction.
func (w *JobsStatusWriter) Begin(ctx context.Context) error {
	if w.tx != nil {
		return models.NewDBError("transaction already open")
	}
	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	w.tx = tx
	return nil
}

// Commit commits the open transaction.
func (w *JobsStatusWriter) Commit() error {
	if w.tx == nil {
		return models.NewDBError("no open transaction to commit")
	}
	err := w.tx.Commit()
	w.tx = nil
	if err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	return nil
}

// Rollback discards the open transaction. Safe to call when none is open.
func (w *JobsStatusWriter) Rollback() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx = nil
	if err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	return nil
}

func (w *JobsStatusWriter) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if w.tx != nil {
		return w.tx.ExecContext(ctx, query, args...)
	}
	return w.db.SQL().ExecContext(ctx, query, args...)
}

// execOne runs a single-row mutation and raises DB_ERROR when the affected
// row count is not exactly one.
func (w *JobsStatusWriter) execOne(ctx context.Context, id int64, query string, args ...any) error {
	res, err := w.exec(ctx, query, args...)
	if err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.NewDBError(common.SanitizeError(err))
	}
	if affected != 1 {
		return models.NewDBError(fmt.Sprintf("expected to update exactly 1 row for job %d, updated %d", id, affected))
	}
	return nil
}

// UpdateStatus sets status and updated_at for one row. All rows in a batch
// share one timestamp.
func (w *JobsStatusWriter) UpdateStatus(ctx context.Context, id int64, status models.JobStatus, ts time.Time) error {
	return w.execOne(ctx, id,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), FormatTimestamp(ts), id)
}

// FinalizeResumeWritten commits the resume_written state: audit fields are
// stored, attempt_count increments exactly once, last_error clears.
func (w *JobsStatusWriter) FinalizeResumeWritten(ctx context.Context, id int64, pdfPath, runID string, ts time.Time) error {
	stamp := FormatTimestamp(ts)
	return w.execOne(ctx, id,
		`UPDATE jobs
		 SET status = 'resume_written',
		     resume_pdf_path = ?,
		     resume_written_at = ?,
		     run_id = ?,
		     attempt_count = COALESCE(attempt_count, 0) + 1,
		     last_error = NULL,
		     updated_at = ?
		 WHERE id = ?`,
		pdfPath, stamp, runID, stamp, id)
}

// FallbackToReviewed is the compensation write after a failed tracker sync.
// attempt_count and the audit fields from the preceding finalize are left
// untouched: the attempt was real even though the projection failed.
func (w *JobsStatusWriter) FallbackToReviewed(ctx context.Context, id int64, lastError string, ts time.Time) error {
	return w.execOne(ctx, id,
		`UPDATE jobs SET status = 'reviewed', last_error = ?, updated_at = ? WHERE id = ?`,
		lastError, FormatTimestamp(ts), id)
}
