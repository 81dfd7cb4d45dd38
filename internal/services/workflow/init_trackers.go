package workflow

import (
	"context"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// InitTrackersOptions carries the validated initialize_shortlist_trackers
// parameters.
type InitTrackersOptions struct {
	Limit       int `validate:"min=1,max=200"`
	DBPath      string
	TrackersDir string
	Force       bool
	DryRun      bool
}

func decodeInitTrackersOptions(args map[string]any, defaultTrackersDir string) (*InitTrackersOptions, error) {
	if err := rejectUnknownKeys(args, "limit", "db_path", "trackers_dir", "force", "dry_run"); err != nil {
		return nil, err
	}

	opts := &InitTrackersOptions{Limit: 50, TrackersDir: defaultTrackersDir}

	if limit, present, err := argInt(args, "limit"); err != nil {
		return nil, err
	} else if present {
		opts.Limit = limit
	}
	if dbPath, _, err := argString(args, "db_path"); err != nil {
		return nil, err
	} else {
		opts.DBPath = dbPath
	}
	if dir, present, err := argString(args, "trackers_dir"); err != nil {
		return nil, err
	} else if present && dir != "" {
		opts.TrackersDir = dir
	}
	if force, _, err := argBool(args, "force"); err != nil {
		return nil, err
	} else {
		opts.Force = force
	}
	if dryRun, _, err := argBool(args, "dry_run"); err != nil {
		return nil, err
	} else {
		opts.DryRun = dryRun
	}

	if err := validateRanges(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// InitializeShortlistTrackers projects shortlisted rows into tracker
// markdown files. Projection-only: the database is never written.
func (s *Service) InitializeShortlistTrackers(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := decodeInitTrackersOptions(args, s.config.Trackers.Dir)
	if err != nil {
		return nil, err
	}

	reader, err := sqlite.NewJobsReader(s.logger, s.resolveDBPath(opts.DBPath), s.dbOptions())
	if err != nil {
		return nil, err
	}
	jobs, err := reader.QueryShortlist(ctx, opts.Limit)
	reader.Close()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(jobs))
	createdCount, skippedCount, failedCount := 0, 0, 0

	for _, job := range jobs {
		result := s.initializeOne(job, opts)
		results = append(results, result)

		switch result["action"] {
		case "created", "overwritten":
			createdCount++
		case "skipped_exists":
			skippedCount++
		case "failed":
			failedCount++
		}
	}

	return map[string]any{
		"created_count": createdCount,
		"skipped_count": skippedCount,
		"failed_count":  failedCount,
		"results":       results,
	}, nil
}

// initializeOne plans and writes one tracker projection. Failures are
// isolated to the item.
func (s *Service) initializeOne(job models.Job, opts *InitTrackersOptions) map[string]any {
	result := map[string]any{
		"id":     job.ID,
		"job_id": job.JobID,
	}

	plan, err := tracker.PlanTracker(job, opts.TrackersDir)
	if err != nil {
		result["action"] = "failed"
		result["success"] = false
		result["error"] = common.SanitizeError(err)
		return result
	}
	result["tracker_path"] = plan.TrackerPath

	action := tracker.ResolveWriteAction(plan.Exists, opts.Force)
	if action == "skipped_exists" {
		result["action"] = action
		result["success"] = true
		return result
	}

	if !opts.DryRun {
		if err := tracker.EnsureWorkspaceDirectories(plan.ApplicationSlug, s.config.Tailor.ApplicationsDir); err != nil {
			result["action"] = "failed"
			result["success"] = false
			result["error"] = common.SanitizeError(err)
			return result
		}
		content := tracker.RenderTracker(job, plan.ApplicationSlug, s.config.Tailor.ApplicationsDir)
		if err := common.AtomicWriteFile(plan.TrackerPath, []byte(content), 0644); err != nil {
			result["action"] = "failed"
			result["success"] = false
			result["error"] = common.SanitizeError(err)
			return result
		}
	}

	result["action"] = action
	result["success"] = true
	return result
}
