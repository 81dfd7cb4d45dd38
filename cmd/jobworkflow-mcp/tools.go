package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createScrapeJobsTool returns the scrape_jobs tool definition
func createScrapeJobsTool() mcp.Tool {
	return mcp.NewTool("scrape_jobs",
		mcp.WithDescription("Scrape fresh job postings from external sources and ingest them into the jobs database. "+
			"Supports multi-term scraping with preflight checks, normalization, filtering, and idempotent insertion. "+
			"Returns structured run results with per-term outcomes and aggregate totals."),
		mcp.WithArray("terms",
			mcp.WithStringItems(),
			mcp.Description("Search terms (default: ['ai engineer', 'backend engineer', 'machine learning'])"),
		),
		mcp.WithString("location",
			mcp.Description("Search location (default: 'Ontario, Canada')"),
		),
		mcp.WithArray("sites",
			mcp.WithStringItems(),
			mcp.Description("Source sites (default: ['linkedin'])"),
		),
		mcp.WithNumber("results_wanted",
			mcp.Description("Requested results per term, 1-200 (default: 20)"),
		),
		mcp.WithNumber("hours_old",
			mcp.Description("Recency window in hours, 1-168 (default: 2)"),
		),
		mcp.WithString("db_path",
			mcp.Description("Optional database path override (default: data/capture/jobs.db)"),
		),
		mcp.WithString("status",
			mcp.Description("Initial status for inserted rows (default: 'new')"),
		),
		mcp.WithBoolean("require_description",
			mcp.Description("Skip records without descriptions (default: true)"),
		),
		mcp.WithString("preflight_host",
			mcp.Description("DNS preflight host (default: 'www.linkedin.com')"),
		),
		mcp.WithNumber("retry_count",
			mcp.Description("Preflight retry count, 1-10 (default: 3)"),
		),
		mcp.WithNumber("retry_sleep_seconds",
			mcp.Description("Base retry sleep seconds, 0-300 (default: 30)"),
		),
		mcp.WithNumber("retry_backoff",
			mcp.Description("Retry backoff multiplier, 1-10 (default: 2)"),
		),
		mcp.WithBoolean("save_capture_json",
			mcp.Description("Persist per-term raw JSON capture files (default: true)"),
		),
		mcp.WithString("capture_dir",
			mcp.Description("Capture output directory (default: data/capture)"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Compute counts only; no DB writes (default: false)"),
		),
	)
}

// createBulkReadNewJobsTool returns the bulk_read_new_jobs tool definition
func createBulkReadNewJobsTool() mcp.Tool {
	return mcp.NewTool("bulk_read_new_jobs",
		mcp.WithDescription("Retrieve jobs with status='new' from the jobs database in configurable batches. "+
			"Supports cursor-based pagination with deterministic ordering. "+
			"Returns job records plus count, has_more flag, and next_cursor."),
		mcp.WithNumber("limit",
			mcp.Description("Batch size, 1-1000 (default: 50)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Opaque pagination cursor from a previous call"),
		),
		mcp.WithString("db_path",
			mcp.Description("Optional database path override (default: data/capture/jobs.db)"),
		),
	)
}

// createBulkUpdateJobStatusTool returns the bulk_update_job_status tool definition
func createBulkUpdateJobStatusTool() mcp.Tool {
	return mcp.NewTool("bulk_update_job_status",
		mcp.WithDescription("Update multiple job statuses in a single atomic transaction. "+
			"Validates status values, checks job existence, and ensures all-or-nothing semantics. "+
			"Returns per-job success/failure results in input order."),
		mcp.WithArray("updates",
			mcp.Required(),
			mcp.Description("Update items, each {id: positive int, status: one of new|shortlist|reviewed|reject|resume_written|applied}. Max 100."),
		),
		mcp.WithString("db_path",
			mcp.Description("Optional database path override (default: data/capture/jobs.db)"),
		),
	)
}

// createInitializeShortlistTrackersTool returns the initialize_shortlist_trackers tool definition
func createInitializeShortlistTrackersTool() mcp.Tool {
	return mcp.NewTool("initialize_shortlist_trackers",
		mcp.WithDescription("Initialize tracker markdown files for jobs with status='shortlist'. "+
			"Creates deterministic tracker notes with frontmatter and workspace directories. "+
			"Idempotent, with force overwrite and dry-run planning modes. Never writes the database."),
		mcp.WithNumber("limit",
			mcp.Description("Number of shortlist jobs to process, 1-200 (default: 50)"),
		),
		mcp.WithString("db_path",
			mcp.Description("Optional database path override (default: data/capture/jobs.db)"),
		),
		mcp.WithString("trackers_dir",
			mcp.Description("Optional trackers directory override (default: trackers/)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite existing tracker files (default: false)"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Compute outcomes without writing files (default: false)"),
		),
	)
}

// createUpdateTrackerStatusTool returns the update_tracker_status tool definition
func createUpdateTrackerStatusTool() mcp.Tool {
	return mcp.NewTool("update_tracker_status",
		mcp.WithDescription("Update tracker frontmatter status with transition policy checks and Resume Written guardrails. "+
			"Supports dry-run preview and forced transitions with warnings. Operates only on tracker files."),
		mcp.WithString("tracker_path",
			mcp.Required(),
			mcp.Description("Path to tracker markdown file"),
		),
		mcp.WithString("target_status",
			mcp.Required(),
			mcp.Description("Target status: Reviewed, Resume Written, Applied, Interview, Offer, Rejected, Ghosted"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview mode without file write (default: false)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Bypass transition policy with warning (default: false)"),
		),
	)
}

// createCareerTailorTool returns the career_tailor tool definition
func createCareerTailorTool() mcp.Tool {
	return mcp.NewTool("career_tailor",
		mcp.WithDescription("Run batch full-tailoring for tracker items: parse tracker context, bootstrap workspace, "+
			"regenerate ai_context.md, and compile resume.tex to resume.pdf. "+
			"Returns successful_items for downstream finalize_resume_batch. Writes no DB or tracker statuses."),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("Tailoring items, each {tracker_path: str, job_db_id?: int}. 1-100 items."),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite existing resume.tex from template (default: false)"),
		),
		mcp.WithString("full_resume_path",
			mcp.Description("Override path for full resume source markdown"),
		),
		mcp.WithString("resume_template_path",
			mcp.Description("Override path for resume skeleton template"),
		),
		mcp.WithString("applications_dir",
			mcp.Description("Override for application workspace root"),
		),
		mcp.WithString("pdflatex_cmd",
			mcp.Description("Override compile command (default: pdflatex)"),
		),
	)
}

// createFinalizeResumeBatchTool returns the finalize_resume_batch tool definition
func createFinalizeResumeBatchTool() mcp.Tool {
	return mcp.NewTool("finalize_resume_batch",
		mcp.WithDescription("Finalize resume compilation jobs in one batch: validate artifacts, "+
			"commit DB completion audit fields, and synchronize tracker status to Resume Written, "+
			"with compensation fallback when tracker sync fails after the DB commit. Supports dry-run."),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("Finalization items, each {id: positive int, tracker_path: str, resume_pdf_path?: str}. Max 100."),
		),
		mcp.WithString("run_id",
			mcp.Description("Optional batch run identifier (auto-generated when omitted)"),
		),
		mcp.WithString("db_path",
			mcp.Description("Optional database path override (default: data/capture/jobs.db)"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview mode without DB or tracker writes (default: false)"),
		),
	)
}
