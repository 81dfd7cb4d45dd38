package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/scraper"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// newTestService builds a Service rooted in a temp directory with inert
// collaborators: a no-op preflight, a stub source, and a compiler that
// emits a real one-page PDF.
func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("JOBWORKFLOW_ROOT", root)
	t.Setenv("JOBWORKFLOW_DB", "")

	config := common.DefaultConfig()
	config.Database.Path = filepath.Join(root, "data", "capture", "jobs.db")
	config.Scrape.RetrySleep = 0

	logger := arbor.NewLogger()
	service := NewService(logger, config).
		WithSource(&fakeSource{}).
		WithCompiler(&fakeCompiler{}).
		WithPreflight(func(cfg scraper.PreflightConfig) interfaces.PreflightChecker {
			return okPreflight{}
		})
	return service, root
}

// newTestDB bootstraps the jobs schema at the service's configured path.
func newTestDB(t *testing.T, service *Service) string {
	t.Helper()
	dbPath := service.config.Database.Path
	writer, err := sqlite.NewJobsIngestWriter(arbor.NewLogger(), dbPath, sqlite.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, writer.EnsureSchema(context.Background()))
	require.NoError(t, writer.Close())
	return dbPath
}

func seedWorkflowJob(t *testing.T, dbPath string, status models.JobStatus, capturedAt time.Time, url, company, title string) int64 {
	t.Helper()
	db, err := sqlite.Open(arbor.NewLogger(), dbPath, sqlite.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	now := sqlite.FormatTimestamp(time.Now())
	res, err := db.SQL().Exec(
		`INSERT INTO jobs (job_id, title, company, description, url, location, source, status, captured_at, payload_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"4284201639", title, company, "Build scalable systems.", url, "Remote", "linkedin",
		string(status), sqlite.FormatTimestamp(capturedAt), "{}", now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func jobStatus(t *testing.T, dbPath string, id int64) string {
	t.Helper()
	db, err := sqlite.Open(arbor.NewLogger(), dbPath, sqlite.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	var status string
	require.NoError(t, db.SQL().QueryRow(`SELECT status FROM jobs WHERE id = ?`, id).Scan(&status))
	return status
}

func jobUpdatedAt(t *testing.T, dbPath string, id int64) string {
	t.Helper()
	db, err := sqlite.Open(arbor.NewLogger(), dbPath, sqlite.DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	var updatedAt string
	require.NoError(t, db.SQL().QueryRow(`SELECT COALESCE(updated_at, '') FROM jobs WHERE id = ?`, id).Scan(&updatedAt))
	return updatedAt
}

// okPreflight always passes.
type okPreflight struct{}

func (okPreflight) Check(ctx context.Context, host string) error { return nil }

// failPreflight always fails.
type failPreflight struct{}

func (failPreflight) Check(ctx context.Context, host string) error {
	return fmt.Errorf("DNS preflight failed for host after 3 attempts")
}

// fakeSource returns canned records per term; terms in failTerms error.
type fakeSource struct {
	records   map[string][]interfaces.RawRecord
	failTerms map[string]bool
	calls     []string
}

func (s *fakeSource) Fetch(ctx context.Context, opts interfaces.FetchOptions) ([]interfaces.RawRecord, error) {
	s.calls = append(s.calls, opts.Term)
	if s.failTerms[opts.Term] {
		return nil, fmt.Errorf("source unavailable for term %q", opts.Term)
	}
	return s.records[opts.Term], nil
}

// fakeCompiler writes a real one-page PDF next to the .tex source.
type fakeCompiler struct {
	fail bool
}

func (c *fakeCompiler) Compile(ctx context.Context, texPath, cmd string) error {
	if c.fail {
		return fmt.Errorf("pdflatex failed: ! Undefined control sequence")
	}
	return writePDF(filepath.Join(filepath.Dir(texPath), "resume.pdf"))
}

// writePDF emits a minimal valid PDF via fpdf.
func writePDF(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, "Resume")
	return pdf.OutputFileAndClose(path)
}

// writeTrackerFile writes a tracker with the given status and resume_path.
func writeTrackerFile(t *testing.T, path, status, resumePath string) {
	t.Helper()
	content := fmt.Sprintf(`---
job_db_id: 3629
job_id: "4284201639"
company: Amazon
position: Software Engineer
status: %s
application_date: 2026-02-04
reference_link: https://example.com/job/123
resume_path: "[[%s]]"
cover_letter_path: "[[data/applications/amazon-3629/cover/cover-letter.pdf]]"
---

## Job Description

Build scalable systems.

## Notes
`, status, resumePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// writeResumeArtifacts creates a valid resume.pdf and resume.tex pair
// under root at the given workspace-relative slug.
func writeResumeArtifacts(t *testing.T, root, slug string) (pdfRel string) {
	t.Helper()
	resumeDir := filepath.Join(root, "data", "applications", slug, "resume")
	require.NoError(t, os.MkdirAll(resumeDir, 0755))
	require.NoError(t, writePDF(filepath.Join(resumeDir, "resume.pdf")))
	require.NoError(t, os.WriteFile(filepath.Join(resumeDir, "resume.tex"),
		[]byte("\\documentclass{article}\\begin{document}Tailored.\\end{document}"), 0644))
	return filepath.ToSlash(filepath.Join("data", "applications", slug, "resume", "resume.pdf"))
}
