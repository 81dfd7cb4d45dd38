package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
	"github.com/ternarybob/arbor"
)

// setupFinalizeFixture seeds a reviewed job, its tracker, and valid
// artifacts. Returns (job id, tracker path).
func setupFinalizeFixture(t *testing.T, service *Service, root string) (int64, string) {
	t.Helper()
	dbPath := newTestDB(t, service)
	id := seedWorkflowJob(t, dbPath, models.JobStatusReviewed, time.Now().UTC(),
		"https://example.com/job/123", "Amazon", "Software Engineer")

	pdfRel := writeResumeArtifacts(t, root, "amazon-3629")
	trackerPath := filepath.Join(root, "trackers", "2026-02-04-amazon-3629.md")
	writeTrackerFile(t, trackerPath, "Reviewed", pdfRel)
	return id, trackerPath
}

func finalizeAudit(t *testing.T, service *Service, id int64) (status, runID, lastError string, attemptCount int) {
	t.Helper()
	db, err := sqlite.Open(arbor.NewLogger(), service.config.Database.Path, sqlite.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	var le *string
	require.NoError(t, db.SQL().QueryRow(
		`SELECT status, COALESCE(run_id, ''), last_error, COALESCE(attempt_count, 0) FROM jobs WHERE id = ?`, id).
		Scan(&status, &runID, &le, &attemptCount))
	if le != nil {
		lastError = *le
	}
	return
}

func TestFinalizeResumeBatch_EmptyBatch(t *testing.T) {
	service, _ := newTestService(t)
	newTestDB(t, service)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, response["finalized_count"])
	assert.Equal(t, 0, response["failed_count"])
	assert.NotEmpty(t, response["run_id"])
}

func TestFinalizeResumeBatch_FullSuccess(t *testing.T) {
	service, root := newTestService(t)
	id, trackerPath := setupFinalizeFixture(t, service, root)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items":  []any{map[string]any{"id": float64(id), "tracker_path": trackerPath}},
		"run_id": "run_20260206_deadbeef",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, response["finalized_count"])
	assert.Equal(t, 0, response["failed_count"])
	results := response["results"].([]map[string]any)
	require.Len(t, results, 1)
	assert.Equal(t, "finalized", results[0]["action"])
	assert.Equal(t, true, results[0]["success"])

	status, runID, lastError, attempts := finalizeAudit(t, service, id)
	assert.Equal(t, "resume_written", status)
	assert.Equal(t, "run_20260206_deadbeef", runID)
	assert.Equal(t, "", lastError)
	assert.Equal(t, 1, attempts)

	doc, err := tracker.Parse(trackerPath)
	require.NoError(t, err)
	assert.Equal(t, "Resume Written", doc.Status)
}

func TestFinalizeResumeBatch_AutoGeneratedRunID(t *testing.T) {
	service, root := newTestService(t)
	id, trackerPath := setupFinalizeFixture(t, service, root)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{map[string]any{"id": float64(id), "tracker_path": trackerPath}},
	})
	require.NoError(t, err)

	runID := response["run_id"].(string)
	assert.True(t, strings.HasPrefix(runID, "run_"))
	parts := strings.Split(runID, "_")
	require.Len(t, parts, 3)
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 8)
}

func TestFinalizeResumeBatch_Compensation(t *testing.T) {
	service, root := newTestService(t)
	id, trackerPath := setupFinalizeFixture(t, service, root)

	// Make the tracker's parent directory read-only so the atomic tracker
	// write cannot create its temp file and fails after the DB commit.
	trackersDir := filepath.Dir(trackerPath)
	require.NoError(t, os.Chmod(trackersDir, 0555))
	defer os.Chmod(trackersDir, 0755)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{map[string]any{"id": float64(id), "tracker_path": trackerPath}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, response["finalized_count"])
	assert.Equal(t, 1, response["failed_count"])
	results := response["results"].([]map[string]any)
	require.Len(t, results, 1)
	assert.Equal(t, "failed", results[0]["action"])
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "Tracker sync failed")

	// Compensation restored reviewed with last_error; the attempt stays
	// counted.
	status, _, lastError, attempts := finalizeAudit(t, service, id)
	assert.Equal(t, "reviewed", status)
	assert.True(t, strings.HasPrefix(lastError, "Tracker sync failed"))
	assert.Equal(t, 1, attempts)

	// Tracker unchanged.
	require.NoError(t, os.Chmod(trackersDir, 0755))
	doc, err := tracker.Parse(trackerPath)
	require.NoError(t, err)
	assert.Equal(t, "Reviewed", doc.Status)
}

func TestFinalizeResumeBatch_CompensationDoesNotAbortBatch(t *testing.T) {
	service, root := newTestService(t)
	dbPath := newTestDB(t, service)

	// First item's tracker lives in a read-only directory; second is fine.
	id1 := seedWorkflowJob(t, dbPath, models.JobStatusReviewed, time.Now().UTC(), "https://example.com/c1", "Amazon", "Engineer")
	id2 := seedWorkflowJob(t, dbPath, models.JobStatusReviewed, time.Now().UTC(), "https://example.com/c2", "Meta", "Engineer")

	pdf1 := writeResumeArtifacts(t, root, "amazon-1")
	pdf2 := writeResumeArtifacts(t, root, "meta-2")

	lockedDir := filepath.Join(root, "locked")
	tracker1 := filepath.Join(lockedDir, "t1.md")
	writeTrackerFile(t, tracker1, "Reviewed", pdf1)
	tracker2 := filepath.Join(root, "trackers", "t2.md")
	writeTrackerFile(t, tracker2, "Reviewed", pdf2)

	require.NoError(t, os.Chmod(lockedDir, 0555))
	defer os.Chmod(lockedDir, 0755)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{
			map[string]any{"id": float64(id1), "tracker_path": tracker1},
			map[string]any{"id": float64(id2), "tracker_path": tracker2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, response["finalized_count"])
	assert.Equal(t, 1, response["failed_count"])

	results := response["results"].([]map[string]any)
	assert.Equal(t, false, results[0]["success"])
	assert.Equal(t, true, results[1]["success"])
	assert.Equal(t, "reviewed", jobStatus(t, dbPath, id1))
	assert.Equal(t, "resume_written", jobStatus(t, dbPath, id2))
}

func TestFinalizeResumeBatch_PreconditionFailures(t *testing.T) {
	service, root := newTestService(t)
	dbPath := newTestDB(t, service)
	id := seedWorkflowJob(t, dbPath, models.JobStatusReviewed, time.Now().UTC(), "https://example.com/p1", "Amazon", "Engineer")

	ctx := context.Background()

	// Missing tracker file.
	response, err := service.FinalizeResumeBatch(ctx, map[string]any{
		"items": []any{map[string]any{"id": float64(id), "tracker_path": filepath.Join(root, "trackers", "absent.md")}},
	})
	require.NoError(t, err)
	results := response["results"].([]map[string]any)
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "not found")
	assert.Equal(t, "reviewed", jobStatus(t, dbPath, id))

	// Placeholder token in resume.tex.
	pdfRel := writeResumeArtifacts(t, root, "amazon-3629")
	texPath := filepath.Join(root, "data", "applications", "amazon-3629", "resume", "resume.tex")
	require.NoError(t, os.WriteFile(texPath, []byte("PROJECT-BE-PLACEHOLDER"), 0644))
	trackerPath := filepath.Join(root, "trackers", "t.md")
	writeTrackerFile(t, trackerPath, "Reviewed", pdfRel)

	response, err = service.FinalizeResumeBatch(ctx, map[string]any{
		"items": []any{map[string]any{"id": float64(id), "tracker_path": trackerPath}},
	})
	require.NoError(t, err)
	results = response["results"].([]map[string]any)
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "placeholder")
	assert.Equal(t, "reviewed", jobStatus(t, dbPath, id))

	// Invalid item shape.
	response, err = service.FinalizeResumeBatch(ctx, map[string]any{
		"items": []any{map[string]any{"id": float64(-4), "tracker_path": trackerPath}},
	})
	require.NoError(t, err)
	results = response["results"].([]map[string]any)
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "positive integer")
}

func TestFinalizeResumeBatch_ItemOverrideWinsOverTracker(t *testing.T) {
	service, root := newTestService(t)
	dbPath := newTestDB(t, service)
	id := seedWorkflowJob(t, dbPath, models.JobStatusReviewed, time.Now().UTC(), "https://example.com/o1", "Amazon", "Engineer")

	// Tracker points at a bogus path; the item override points at the
	// real artifacts.
	overrideRel := writeResumeArtifacts(t, root, "override-slug")
	trackerPath := filepath.Join(root, "trackers", "t.md")
	writeTrackerFile(t, trackerPath, "Reviewed", "data/applications/bogus/resume/resume.pdf")

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{map[string]any{
			"id":              float64(id),
			"tracker_path":    trackerPath,
			"resume_pdf_path": overrideRel,
		}},
	})
	require.NoError(t, err)
	results := response["results"].([]map[string]any)
	assert.Equal(t, true, results[0]["success"])
	assert.Equal(t, overrideRel, results[0]["resume_pdf_path"])
}

func TestFinalizeResumeBatch_DryRunLeavesEverythingUntouched(t *testing.T) {
	service, root := newTestService(t)
	id, trackerPath := setupFinalizeFixture(t, service, root)
	before, _ := os.ReadFile(trackerPath)

	response, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items":   []any{map[string]any{"id": float64(id), "tracker_path": trackerPath}},
		"dry_run": true,
	})
	require.NoError(t, err)

	assert.Equal(t, true, response["dry_run"])
	results := response["results"].([]map[string]any)
	assert.Equal(t, "would_finalize", results[0]["action"])
	assert.Equal(t, true, results[0]["success"])

	status, runID, _, attempts := finalizeAudit(t, service, id)
	assert.Equal(t, "reviewed", status)
	assert.Equal(t, "", runID)
	assert.Equal(t, 0, attempts)

	after, _ := os.ReadFile(trackerPath)
	assert.Equal(t, before, after)
}

func TestFinalizeResumeBatch_DuplicateIDsRejected(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{
			map[string]any{"id": float64(7), "tracker_path": "a.md"},
			map[string]any{"id": "7", "tracker_path": "b.md"},
		},
	})
	require.Error(t, err)
	te, ok := err.(*models.ToolError)
	require.True(t, ok)
	assert.Equal(t, models.ErrValidation, te.Code)
	assert.Contains(t, te.Message, "duplicate")
}

func TestFinalizeResumeBatch_SchemaPreflightFailure(t *testing.T) {
	service, root := newTestService(t)

	// Legacy schema without audit columns.
	dbPath := service.config.Database.Path
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0755))
	db, err := sqlite.OpenOrCreate(arbor.NewLogger(), dbPath, sqlite.DefaultOptions())
	require.NoError(t, err)
	_, err = db.SQL().Exec(`CREATE TABLE jobs (id INTEGER PRIMARY KEY, url TEXT UNIQUE NOT NULL, status TEXT)`)
	require.NoError(t, err)
	db.Close()

	trackerPath := filepath.Join(root, "trackers", "t.md")
	writeTrackerFile(t, trackerPath, "Reviewed", "data/applications/x/resume/resume.pdf")

	_, err = service.FinalizeResumeBatch(context.Background(), map[string]any{
		"items": []any{map[string]any{"id": float64(1), "tracker_path": trackerPath}},
	})
	require.Error(t, err)
	te, ok := err.(*models.ToolError)
	require.True(t, ok)
	assert.Equal(t, models.ErrDB, te.Code)
	assert.Contains(t, te.Message, "migration required")
}
