package interfaces

import (
	"context"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/models"
)

// JobsReader provides read-only access to the jobs table.
type JobsReader interface {
	// QueryNew returns up to limit rows with status='new' ordered by
	// (captured_at DESC, id DESC), plus a has_more flag and the opaque
	// cursor for the next page (empty when terminal).
	QueryNew(ctx context.Context, limit int, cursor string) (jobs []models.Job, hasMore bool, nextCursor string, err error)

	// QueryShortlist returns up to limit rows with status='shortlist'
	// in the same deterministic order.
	QueryShortlist(ctx context.Context, limit int) ([]models.Job, error)

	Close() error
}

// JobsIngestWriter persists normalized scrape records.
type JobsIngestWriter interface {
	// EnsureSchema bootstraps the jobs table and its status index.
	EnsureSchema(ctx context.Context) error

	// InsertCleaned inserts records with insert-or-ignore keyed on url and
	// returns (inserted, duplicates). A dedupe hit never mutates the
	// existing row.
	InsertCleaned(ctx context.Context, records []models.CleanedRecord, status models.JobStatus) (inserted, duplicates int, err error)

	Close() error
}

// JobsStatusWriter mutates job status and finalize audit fields.
type JobsStatusWriter interface {
	// PreflightUpdateColumns verifies updated_at exists before bulk updates.
	PreflightUpdateColumns(ctx context.Context) error

	// PreflightFinalizeColumns verifies the full audit column set exists.
	PreflightFinalizeColumns(ctx context.Context) error

	// JobExists reports whether a row with the given id exists.
	JobExists(ctx context.Context, id int64) (bool, error)

	// Begin opens the batch transaction; Commit/Rollback close it.
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// UpdateStatus sets status and updated_at for one row inside the open
	// transaction. All rows in a batch share one timestamp.
	UpdateStatus(ctx context.Context, id int64, status models.JobStatus, ts time.Time) error

	// FinalizeResumeWritten commits the resume_written state with audit
	// fields, increments attempt_count and clears last_error.
	FinalizeResumeWritten(ctx context.Context, id int64, pdfPath, runID string, ts time.Time) error

	// FallbackToReviewed is the compensation write: status back to
	// 'reviewed' with last_error set; attempt_count and the audit fields
	// written by the finalize are left untouched.
	FallbackToReviewed(ctx context.Context, id int64, lastError string, ts time.Time) error

	Close() error
}
