package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/scraper"
)

func rawRecord(url string) interfaces.RawRecord {
	return interfaces.RawRecord{
		Site:        "linkedin",
		JobURL:      url,
		Title:       "Backend Engineer",
		Company:     "Acme",
		Location:    "Remote",
		Description: "Build services.",
		DatePosted:  "2026-02-05",
	}
}

func scrapeArgs(extra map[string]any) map[string]any {
	args := map[string]any{
		"terms":             []any{"backend engineer"},
		"save_capture_json": false,
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestScrapeJobs_UnknownParameter(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.ScrapeJobs(context.Background(), map[string]any{"term": []any{"x"}})
	require.Error(t, err)
	te, ok := err.(*models.ToolError)
	require.True(t, ok)
	assert.Equal(t, models.ErrValidation, te.Code)
}

func TestScrapeJobs_RangeValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	cases := []map[string]any{
		{"results_wanted": 0},
		{"results_wanted": 201},
		{"hours_old": 0},
		{"hours_old": 169},
		{"retry_count": 0},
		{"retry_count": 11},
		{"retry_sleep_seconds": -1},
		{"retry_sleep_seconds": 301},
		{"retry_backoff": 0.5},
		{"retry_backoff": 11},
		{"status": "bogus"},
		{"terms": []any{}},
	}
	for _, extra := range cases {
		_, err := service.ScrapeJobs(ctx, scrapeArgs(extra))
		require.Error(t, err, "args: %v", extra)
		te, ok := err.(*models.ToolError)
		require.True(t, ok)
		assert.Equal(t, models.ErrValidation, te.Code)
	}
}

func TestScrapeJobs_IngestThenReingest(t *testing.T) {
	service, _ := newTestService(t)
	source := &fakeSource{records: map[string][]interfaces.RawRecord{
		"backend engineer": {
			rawRecord("https://example.com/j/1"),
			rawRecord("https://example.com/j/2"),
			rawRecord("https://example.com/j/3"),
		},
	}}
	service.WithSource(source)

	ctx := context.Background()
	first, err := service.ScrapeJobs(ctx, scrapeArgs(nil))
	require.NoError(t, err)

	totals := first["totals"].(map[string]any)
	assert.Equal(t, 1, totals["term_count"])
	assert.Equal(t, 1, totals["successful_terms"])
	assert.Equal(t, 0, totals["failed_terms"])
	assert.Equal(t, 3, totals["fetched_count"])
	assert.Equal(t, 3, totals["inserted_count"])
	assert.Equal(t, 0, totals["duplicate_count"])
	assert.True(t, strings.HasPrefix(first["run_id"].(string), "scrape_"))

	second, err := service.ScrapeJobs(ctx, scrapeArgs(nil))
	require.NoError(t, err)
	totals = second["totals"].(map[string]any)
	assert.Equal(t, 0, totals["inserted_count"])
	assert.Equal(t, 3, totals["duplicate_count"])
}

func TestScrapeJobs_PerTermIsolation(t *testing.T) {
	service, _ := newTestService(t)
	source := &fakeSource{
		records: map[string][]interfaces.RawRecord{
			"good term": {rawRecord("https://example.com/g/1")},
		},
		failTerms: map[string]bool{"bad term": true},
	}
	service.WithSource(source)

	response, err := service.ScrapeJobs(context.Background(), scrapeArgs(map[string]any{
		"terms": []any{"bad term", "good term"},
	}))
	require.NoError(t, err)

	results := response["results"].([]map[string]any)
	require.Len(t, results, 2)
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "source unavailable")
	assert.Equal(t, true, results[1]["success"])
	assert.Equal(t, 1, results[1]["inserted_count"])

	totals := response["totals"].(map[string]any)
	assert.Equal(t, 2, totals["term_count"])
	assert.Equal(t, 1, totals["successful_terms"])
	assert.Equal(t, 1, totals["failed_terms"])
}

func TestScrapeJobs_PreflightFailureIsolatesTerm(t *testing.T) {
	service, _ := newTestService(t)
	source := &fakeSource{records: map[string][]interfaces.RawRecord{}}
	service.WithSource(source)
	service.WithPreflight(func(cfg scraper.PreflightConfig) interfaces.PreflightChecker {
		return failPreflight{}
	})

	response, err := service.ScrapeJobs(context.Background(), scrapeArgs(nil))
	require.NoError(t, err)

	results := response["results"].([]map[string]any)
	assert.Equal(t, false, results[0]["success"])
	assert.Contains(t, results[0]["error"].(string), "preflight")
	// Fetch never ran.
	assert.Empty(t, source.calls)
}

func TestScrapeJobs_FilterCounts(t *testing.T) {
	service, _ := newTestService(t)
	noURL := rawRecord("")
	noDesc := rawRecord("https://example.com/nd")
	noDesc.Description = ""
	source := &fakeSource{records: map[string][]interfaces.RawRecord{
		"backend engineer": {rawRecord("https://example.com/ok"), noURL, noDesc},
	}}
	service.WithSource(source)

	response, err := service.ScrapeJobs(context.Background(), scrapeArgs(nil))
	require.NoError(t, err)

	results := response["results"].([]map[string]any)
	assert.Equal(t, 3, results[0]["fetched_count"])
	assert.Equal(t, 1, results[0]["cleaned_count"])
	assert.Equal(t, 1, results[0]["skipped_no_url"])
	assert.Equal(t, 1, results[0]["skipped_no_description"])
}

func TestScrapeJobs_DryRunWritesNoRows(t *testing.T) {
	service, root := newTestService(t)
	source := &fakeSource{records: map[string][]interfaces.RawRecord{
		"backend engineer": {rawRecord("https://example.com/dr/1")},
	}}
	service.WithSource(source)

	response, err := service.ScrapeJobs(context.Background(), scrapeArgs(map[string]any{"dry_run": true}))
	require.NoError(t, err)

	assert.Equal(t, true, response["dry_run"])
	totals := response["totals"].(map[string]any)
	assert.Equal(t, 1, totals["cleaned_count"])
	assert.Equal(t, 0, totals["inserted_count"])

	// The database file was never created.
	_, err = os.Stat(filepath.Join(root, "data", "capture", "jobs.db"))
	assert.True(t, os.IsNotExist(err))
}

func TestScrapeJobs_CaptureArtifact(t *testing.T) {
	service, root := newTestService(t)
	source := &fakeSource{records: map[string][]interfaces.RawRecord{
		"backend engineer": {rawRecord("https://example.com/cap/1")},
	}}
	service.WithSource(source)

	response, err := service.ScrapeJobs(context.Background(), map[string]any{
		"terms": []any{"backend engineer"},
	})
	require.NoError(t, err)

	results := response["results"].([]map[string]any)
	capturePath, ok := results[0]["capture_path"].(string)
	require.True(t, ok)
	assert.Equal(t,
		filepath.Join(root, "data", "capture", "jobspy_linkedin_backend_engineer_ontario_canada_2h.json"),
		capturePath)

	data, err := os.ReadFile(capturePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://example.com/cap/1")
}

func TestScrapeJobs_StatusOverride(t *testing.T) {
	service, _ := newTestService(t)
	source := &fakeSource{records: map[string][]interfaces.RawRecord{
		"backend engineer": {rawRecord("https://example.com/so/1")},
	}}
	service.WithSource(source)

	_, err := service.ScrapeJobs(context.Background(), scrapeArgs(map[string]any{"status": "shortlist"}))
	require.NoError(t, err)

	// Rows landed as shortlist: the projection op picks them up.
	response, err := service.InitializeShortlistTrackers(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, response["created_count"])
}
