package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/scraper"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// ScrapeOptions carries the validated scrape_jobs parameters.
type ScrapeOptions struct {
	Terms              []string
	Location           string
	Sites              []string
	ResultsWanted      int     `validate:"min=1,max=200"`
	HoursOld           int     `validate:"min=1,max=168"`
	DBPath             string
	Status             models.JobStatus
	RequireDescription bool
	PreflightHost      string
	RetryCount         int     `validate:"min=1,max=10"`
	RetrySleepSecs     float64 `validate:"min=0,max=300"`
	RetryBackoff       float64 `validate:"min=1,max=10"`
	SaveCaptureJSON    bool
	CaptureDir         string
	DryRun             bool
}

func (s *Service) decodeScrapeOptions(args map[string]any) (*ScrapeOptions, error) {
	if err := rejectUnknownKeys(args,
		"terms", "location", "sites", "results_wanted", "hours_old", "db_path",
		"status", "require_description", "preflight_host", "retry_count",
		"retry_sleep_seconds", "retry_backoff", "save_capture_json",
		"capture_dir", "dry_run"); err != nil {
		return nil, err
	}

	cfg := s.config.Scrape
	opts := &ScrapeOptions{
		Terms:              cfg.Terms,
		Location:           cfg.Location,
		Sites:              cfg.Sites,
		ResultsWanted:      cfg.ResultsWanted,
		HoursOld:           cfg.HoursOld,
		Status:             models.JobStatusNew,
		RequireDescription: true,
		PreflightHost:      cfg.PreflightHost,
		RetryCount:         cfg.RetryCount,
		RetrySleepSecs:     cfg.RetrySleep.Seconds(),
		RetryBackoff:       cfg.RetryBackoff,
		SaveCaptureJSON:    cfg.SaveCaptureJSON,
		CaptureDir:         cfg.CaptureDir,
	}
	// An out-of-range configured results_wanted falls back to the tool
	// default of 20.
	if opts.ResultsWanted < 1 || opts.ResultsWanted > 200 {
		opts.ResultsWanted = 20
	}

	if terms, present, err := argStringSlice(args, "terms"); err != nil {
		return nil, err
	} else if present {
		if len(terms) == 0 {
			return nil, models.NewValidationError("terms must be a non-empty array of strings")
		}
		for _, term := range terms {
			if strings.TrimSpace(term) == "" {
				return nil, models.NewValidationError("terms must not contain empty strings")
			}
		}
		opts.Terms = terms
	}
	if location, present, err := argString(args, "location"); err != nil {
		return nil, err
	} else if present && location != "" {
		opts.Location = location
	}
	if sites, present, err := argStringSlice(args, "sites"); err != nil {
		return nil, err
	} else if present && len(sites) > 0 {
		opts.Sites = sites
	}
	if v, present, err := argInt(args, "results_wanted"); err != nil {
		return nil, err
	} else if present {
		opts.ResultsWanted = v
	}
	if v, present, err := argInt(args, "hours_old"); err != nil {
		return nil, err
	} else if present {
		opts.HoursOld = v
	}
	if v, _, err := argString(args, "db_path"); err != nil {
		return nil, err
	} else {
		opts.DBPath = v
	}
	if v, present, err := argString(args, "status"); err != nil {
		return nil, err
	} else if present {
		if !models.IsValidJobStatus(v) {
			return nil, models.NewValidationError(fmt.Sprintf(
				"invalid status '%s': must be one of %s", v, allowedStatusList()))
		}
		opts.Status = models.JobStatus(v)
	}
	if v, present, err := argBool(args, "require_description"); err != nil {
		return nil, err
	} else if present {
		opts.RequireDescription = v
	}
	if v, present, err := argString(args, "preflight_host"); err != nil {
		return nil, err
	} else if present && v != "" {
		opts.PreflightHost = v
	}
	if v, present, err := argInt(args, "retry_count"); err != nil {
		return nil, err
	} else if present {
		opts.RetryCount = v
	}
	if v, present, err := argFloat(args, "retry_sleep_seconds"); err != nil {
		return nil, err
	} else if present {
		opts.RetrySleepSecs = v
	}
	if v, present, err := argFloat(args, "retry_backoff"); err != nil {
		return nil, err
	} else if present {
		opts.RetryBackoff = v
	}
	if v, present, err := argBool(args, "save_capture_json"); err != nil {
		return nil, err
	} else if present {
		opts.SaveCaptureJSON = v
	}
	if v, present, err := argString(args, "capture_dir"); err != nil {
		return nil, err
	} else if present && v != "" {
		opts.CaptureDir = v
	}
	if v, _, err := argBool(args, "dry_run"); err != nil {
		return nil, err
	} else {
		opts.DryRun = v
	}

	if err := validateRanges(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// termResult accumulates the per-term pipeline counters.
type termResult struct {
	Term                 string
	Success              bool
	FetchedCount         int
	CleanedCount         int
	InsertedCount        int
	DuplicateCount       int
	SkippedNoURL         int
	SkippedNoDescription int
	CapturePath          string
	Error                string
}

// ScrapeJobs runs the multi-term ingestion pipeline. Each term is
// isolated: preflight, fetch, normalize, filter, capture, persist. One
// term's failure never aborts its siblings.
func (s *Service) ScrapeJobs(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := s.decodeScrapeOptions(args)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	runID := common.NewRunID("scrape", startedAt)

	var ingest *sqlite.JobsIngestWriter
	if !opts.DryRun {
		ingest, err = sqlite.NewJobsIngestWriter(s.logger, s.resolveDBPath(opts.DBPath), s.dbOptions())
		if err != nil {
			return nil, err
		}
		defer ingest.Close()
		if err := ingest.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}

	preflight := s.newPreflight(scraper.PreflightConfig{
		RetryCount:   opts.RetryCount,
		RetrySleep:   time.Duration(opts.RetrySleepSecs * float64(time.Second)),
		RetryBackoff: opts.RetryBackoff,
	})

	results := make([]termResult, 0, len(opts.Terms))
	for _, term := range opts.Terms {
		results = append(results, s.scrapeTerm(ctx, term, opts, preflight, ingest))
	}

	finishedAt := time.Now().UTC()
	return scrapeResponse(runID, startedAt, finishedAt, opts.DryRun, results), nil
}

// scrapeTerm runs the isolated pipeline for one search term.
func (s *Service) scrapeTerm(ctx context.Context, term string, opts *ScrapeOptions, preflight interfaces.PreflightChecker, ingest *sqlite.JobsIngestWriter) termResult {
	result := termResult{Term: term}

	if err := preflight.Check(ctx, opts.PreflightHost); err != nil {
		result.Error = common.SanitizeError(err)
		return result
	}

	raw, err := s.source.Fetch(ctx, interfaces.FetchOptions{
		Term:          term,
		Location:      opts.Location,
		Sites:         opts.Sites,
		ResultsWanted: opts.ResultsWanted,
		HoursOld:      opts.HoursOld,
	})
	if err != nil {
		result.Error = common.SanitizeError(err)
		return result
	}
	result.FetchedCount = len(raw)

	siteOverride := ""
	if len(opts.Sites) == 1 {
		siteOverride = opts.Sites[0]
	}
	cleaned, counts := scraper.NormalizeRecords(raw, siteOverride, opts.RequireDescription, time.Now())
	result.CleanedCount = len(cleaned)
	result.SkippedNoURL = counts.SkippedNoURL
	result.SkippedNoDescription = counts.SkippedNoDescription

	if opts.SaveCaptureJSON {
		site := "multi"
		if len(opts.Sites) == 1 {
			site = opts.Sites[0]
		}
		capturePath, err := scraper.WriteCapture(opts.CaptureDir, site, term, opts.Location, opts.HoursOld, raw)
		if err != nil {
			// Capture artifacts are best-effort; the term still succeeds
			// and the path is simply omitted.
			s.logger.Warn().Err(err).Str("term", term).Msg("Failed to write capture artifact")
		} else {
			result.CapturePath = capturePath
		}
	}

	if !opts.DryRun {
		inserted, duplicates, err := ingest.InsertCleaned(ctx, cleaned, opts.Status)
		if err != nil {
			result.Error = common.SanitizeError(err)
			return result
		}
		result.InsertedCount = inserted
		result.DuplicateCount = duplicates
	}

	result.Success = true
	return result
}

func scrapeResponse(runID string, startedAt, finishedAt time.Time, dryRun bool, results []termResult) map[string]any {
	perTerm := make([]map[string]any, 0, len(results))
	totals := map[string]int{}
	successful, failed := 0, 0

	for _, r := range results {
		entry := map[string]any{
			"term":                   r.Term,
			"success":                r.Success,
			"fetched_count":          r.FetchedCount,
			"cleaned_count":          r.CleanedCount,
			"inserted_count":         r.InsertedCount,
			"duplicate_count":        r.DuplicateCount,
			"skipped_no_url":         r.SkippedNoURL,
			"skipped_no_description": r.SkippedNoDescription,
		}
		if r.CapturePath != "" {
			entry["capture_path"] = r.CapturePath
		}
		if r.Error != "" {
			entry["error"] = r.Error
		}
		perTerm = append(perTerm, entry)

		if r.Success {
			successful++
		} else {
			failed++
		}
		totals["fetched_count"] += r.FetchedCount
		totals["cleaned_count"] += r.CleanedCount
		totals["inserted_count"] += r.InsertedCount
		totals["duplicate_count"] += r.DuplicateCount
		totals["skipped_no_url"] += r.SkippedNoURL
		totals["skipped_no_description"] += r.SkippedNoDescription
	}

	return map[string]any{
		"run_id":      runID,
		"started_at":  sqlite.FormatTimestamp(startedAt),
		"finished_at": sqlite.FormatTimestamp(finishedAt),
		"duration_ms": finishedAt.Sub(startedAt).Milliseconds(),
		"dry_run":     dryRun,
		"results":     perTerm,
		"totals": map[string]any{
			"term_count":             len(results),
			"successful_terms":       successful,
			"failed_terms":           failed,
			"fetched_count":          totals["fetched_count"],
			"cleaned_count":          totals["cleaned_count"],
			"inserted_count":         totals["inserted_count"],
			"duplicate_count":        totals["duplicate_count"],
			"skipped_no_url":         totals["skipped_no_url"],
			"skipped_no_description": totals["skipped_no_description"],
		},
	}
}
