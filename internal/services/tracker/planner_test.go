package tracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dengnaichen/jobworkflow/internal/models"
)

func shortlistJob() models.Job {
	return models.Job{
		ID:         3629,
		JobID:      "4284201639",
		Title:      "Software Engineer",
		Company:    "Amazon",
		URL:        "https://example.com/job/123",
		Status:     models.JobStatusShortlist,
		CapturedAt: time.Date(2026, 2, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestPlanTracker_DeterministicFilename(t *testing.T) {
	trackersDir := t.TempDir()

	plan, err := PlanTracker(shortlistJob(), trackersDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(trackersDir, "2026-02-04-amazon-3629.md"), plan.TrackerPath)
	assert.Equal(t, "amazon-3629", plan.ApplicationSlug)
	assert.False(t, plan.Exists)
}

func TestPlanTracker_ExistingFileDetected(t *testing.T) {
	trackersDir := t.TempDir()
	existing := filepath.Join(trackersDir, "2026-02-04-amazon-3629.md")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	plan, err := PlanTracker(shortlistJob(), trackersDir)
	require.NoError(t, err)
	assert.True(t, plan.Exists)
	assert.Equal(t, existing, plan.TrackerPath)
}

func TestPlanTracker_LegacyReferenceLinkDedupe(t *testing.T) {
	trackersDir := t.TempDir()
	legacy := filepath.Join(trackersDir, "2026-02-04-amazon.md")
	legacyContent := `---
company: Amazon
position: Software Engineer
status: Resume Written
reference_link: https://example.com/job/123
---

## Job Description

Existing legacy tracker.

## Notes
`
	require.NoError(t, os.WriteFile(legacy, []byte(legacyContent), 0644))

	plan, err := PlanTracker(shortlistJob(), trackersDir)
	require.NoError(t, err)

	assert.True(t, plan.Exists)
	assert.Equal(t, legacy, plan.TrackerPath)
}

func TestPlanTracker_UnparseableLegacyFilesSkipped(t *testing.T) {
	trackersDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(trackersDir, "garbage.md"), []byte("not a tracker"), 0644))

	plan, err := PlanTracker(shortlistJob(), trackersDir)
	require.NoError(t, err)
	assert.False(t, plan.Exists)
}

func TestResolveWriteAction(t *testing.T) {
	assert.Equal(t, "created", ResolveWriteAction(false, false))
	assert.Equal(t, "created", ResolveWriteAction(false, true))
	assert.Equal(t, "skipped_exists", ResolveWriteAction(true, false))
	assert.Equal(t, "overwritten", ResolveWriteAction(true, true))
}

func TestEnsureWorkspaceDirectories(t *testing.T) {
	appsDir := t.TempDir()

	require.NoError(t, EnsureWorkspaceDirectories("amazon-3629", appsDir))

	for _, sub := range []string{"resume", "cover", "cv"} {
		info, err := os.Stat(filepath.Join(appsDir, "amazon-3629", sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on repeat
	require.NoError(t, EnsureWorkspaceDirectories("amazon-3629", appsDir))
}

func TestRenderTracker_StableFrontmatter(t *testing.T) {
	job := shortlistJob()
	job.Description = "Build scalable systems."

	content := RenderTracker(job, "amazon-3629", "data/applications")

	doc, err := ParseContent(content)
	require.NoError(t, err)
	assert.Equal(t, "Reviewed", doc.Status)
	assert.Equal(t, 3629, doc.Frontmatter["job_db_id"])
	assert.Equal(t, "Amazon", doc.Frontmatter["company"])
	assert.Equal(t, "Software Engineer", doc.Frontmatter["position"])
	assert.Equal(t, "https://example.com/job/123", doc.Frontmatter["reference_link"])
	assert.Equal(t, "[[data/applications/amazon-3629/resume/resume.pdf]]", doc.Frontmatter["resume_path"])
	assert.Equal(t, "[[data/applications/amazon-3629/cover/cover-letter.pdf]]", doc.Frontmatter["cover_letter_path"])

	jd, err := ExtractJobDescription(doc.Body)
	require.NoError(t, err)
	assert.Equal(t, "Build scalable systems.", jd)
	assert.Contains(t, doc.Body, "## Notes")

	// Round-trips through the slug resolver
	assert.Equal(t, "amazon-3629", ExtractSlugFromResumePath(doc.Frontmatter["resume_path"].(string)))
}

func TestRenderTracker_QuotesAmbiguousValues(t *testing.T) {
	job := shortlistJob()
	job.JobID = "0042"
	job.Company = "Notes: The Startup"

	content := RenderTracker(job, "notes_the_startup-3629", "data/applications")

	doc, err := ParseContent(content)
	require.NoError(t, err)
	assert.Equal(t, "0042", doc.Frontmatter["job_id"])
	assert.Equal(t, "Notes: The Startup", doc.Frontmatter["company"])
}

func TestRenderTracker_ApplicationDateFromCapturedAt(t *testing.T) {
	content := RenderTracker(shortlistJob(), "amazon-3629", "data/applications")
	assert.Contains(t, content, "application_date: 2026-02-04")
}
