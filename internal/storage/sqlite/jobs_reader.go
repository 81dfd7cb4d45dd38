package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"

	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// JobsReader implements read-only access to the jobs table.
type JobsReader struct {
	db     *DB
	logger arbor.ILogger
}

var _ interfaces.JobsReader = (*JobsReader)(nil)

// NewJobsReader opens a reader over an existing database.
func NewJobsReader(logger arbor.ILogger, dbPath string, opts Options) (*JobsReader, error) {
	db, err := Open(logger, dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &JobsReader{db: db, logger: logger}, nil
}

// Close releases the underlying connection.
func (r *JobsReader) Close() error {
	return r.db.Close()
}

// cursorPayload encodes the keyset position of the last row of a page.
type cursorPayload struct {
	CapturedAt string `json:"captured_at"`
	ID         int64  `json:"id"`
}

// EncodeCursor renders an opaque pagination cursor for (capturedAt, id).
func EncodeCursor(capturedAt string, id int64) string {
	data, _ := json.Marshal(cursorPayload{CapturedAt: capturedAt, ID: id})
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor. Malformed input maps to
// VALIDATION_ERROR so callers surface a non-retryable failure.
func DecodeCursor(cursor string) (cursorPayload, error) {
	var payload cursorPayload
	data, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return payload, models.NewValidationError("cursor is not a valid pagination token")
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, models.NewValidationError("cursor is not a valid pagination token")
	}
	if payload.CapturedAt == "" || payload.ID <= 0 {
		return payload, models.NewValidationError("cursor is not a valid pagination token")
	}
	return payload, nil
}

const readColumns = `id, job_id, title, company, description, url, location, source, status, captured_at`

// QueryNew returns one page of status='new' rows. Over-fetches by one row
// to compute has_more without a second query.
func (r *JobsReader) QueryNew(ctx context.Context, limit int, cursor string) ([]models.Job, bool, string, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if cursor != "" {
		payload, decErr := DecodeCursor(cursor)
		if decErr != nil {
			return nil, false, "", decErr
		}
		rows, err = r.db.SQL().QueryContext(ctx,
			`SELECT `+readColumns+` FROM jobs
			 WHERE status = 'new' AND (captured_at < ? OR (captured_at = ? AND id < ?))
			 ORDER BY captured_at DESC, id DESC LIMIT ?`,
			payload.CapturedAt, payload.CapturedAt, payload.ID, limit+1)
	} else {
		rows, err = r.db.SQL().QueryContext(ctx,
			`SELECT `+readColumns+` FROM jobs
			 WHERE status = 'new'
			 ORDER BY captured_at DESC, id DESC LIMIT ?`,
			limit+1)
	}
	if err != nil {
		return nil, false, "", models.NewDBError(common.SanitizeError(err))
	}
	defer rows.Close()

	jobs, capturedRaw, err := scanJobs(rows)
	if err != nil {
		return nil, false, "", err
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
		capturedRaw = capturedRaw[:limit]
	}

	nextCursor := ""
	if hasMore && len(jobs) > 0 {
		last := len(jobs) - 1
		nextCursor = EncodeCursor(capturedRaw[last], jobs[last].ID)
	}
	return jobs, hasMore, nextCursor, nil
}

// QueryShortlist returns up to limit status='shortlist' rows in the same
// deterministic order as QueryNew.
func (r *JobsReader) QueryShortlist(ctx context.Context, limit int) ([]models.Job, error) {
	rows, err := r.db.SQL().QueryContext(ctx,
		`SELECT `+readColumns+` FROM jobs
		 WHERE status = 'shortlist'
		 ORDER BY captured_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, models.NewDBError(common.SanitizeError(err))
	}
	defer rows.Close()

	jobs, _, err := scanJobs(rows)
	return jobs, err
}

// scanJobs scans the shared read column set, normalizing NULL and empty
// strings to empty. The raw captured_at text is returned alongside so
// cursor encoding reuses the exact stored value.
func scanJobs(rows *sql.Rows) ([]models.Job, []string, error) {
	var (
		jobs        []models.Job
		capturedRaw []string
	)
	for rows.Next() {
		var (
			job                                                              models.Job
			jobID, title, company, description, location, source, capturedAt sql.NullString
			status                                                           string
		)
		if err := rows.Scan(&job.ID, &jobID, &title, &company, &description, &job.URL,
			&location, &source, &status, &capturedAt); err != nil {
			return nil, nil, models.NewDBError(common.SanitizeError(err))
		}
		job.JobID = jobID.String
		job.Title = title.String
		job.Company = company.String
		job.Description = description.String
		job.Location = location.String
		job.Source = source.String
		job.Status = models.JobStatus(status)
		if capturedAt.Valid {
			if t, err := ParseTimestamp(capturedAt.String); err == nil {
				job.CapturedAt = t
			}
		}
		jobs = append(jobs, job)
		capturedRaw = append(capturedRaw, capturedAt.String)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, models.NewDBError(common.SanitizeError(err))
	}
	return jobs, capturedRaw, nil
}
