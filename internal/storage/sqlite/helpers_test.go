package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// newTestDBPath creates a fresh database file with the jobs schema and
// returns its path.
func newTestDBPath(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jobs.db")

	writer, err := NewJobsIngestWriter(testLogger(), dbPath, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, writer.EnsureSchema(context.Background()))
	require.NoError(t, writer.Close())

	return dbPath
}

// seedJob inserts one row with explicit status and captured_at, returning
// the assigned id.
func seedJob(t *testing.T, dbPath string, status models.JobStatus, capturedAt time.Time, url string) int64 {
	t.Helper()
	db, err := Open(testLogger(), dbPath, DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	now := FormatTimestamp(time.Now())
	res, err := db.SQL().Exec(
		`INSERT INTO jobs (job_id, title, company, description, url, location, source, status, captured_at, payload_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fmt.Sprintf("jid-%s", url), "Engineer", "Acme", "A role.", url, "Remote", "linkedin",
		string(status), FormatTimestamp(capturedAt), "{}", now, now)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// fetchJobRow reads back the mutable columns asserted on by writer tests.
type jobRow struct {
	Status          string
	UpdatedAt       string
	ResumePDFPath   sql.NullString
	ResumeWrittenAt sql.NullString
	RunID           sql.NullString
	AttemptCount    int
	LastError       sql.NullString
}

func fetchJobRow(t *testing.T, dbPath string, id int64) jobRow {
	t.Helper()
	db, err := Open(testLogger(), dbPath, DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	var row jobRow
	err = db.SQL().QueryRow(
		`SELECT status, COALESCE(updated_at, ''), resume_pdf_path, resume_written_at, run_id,
		        COALESCE(attempt_count, 0), last_error
		 FROM jobs WHERE id = ?`, id).
		Scan(&row.Status, &row.UpdatedAt, &row.ResumePDFPath, &row.ResumeWrittenAt,
			&row.RunID, &row.AttemptCount, &row.LastError)
	require.NoError(t, err)
	return row
}
