package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// FinalizeOptions carries the validated finalize_resume_batch parameters.
type FinalizeOptions struct {
	Items  []map[string]any
	RunID  string
	DBPath string
	DryRun bool
}

func decodeFinalizeOptions(args map[string]any) (*FinalizeOptions, error) {
	if err := rejectUnknownKeys(args, "items", "run_id", "db_path", "dry_run"); err != nil {
		return nil, err
	}

	items, present, err := argMapSlice(args, "items")
	if err != nil {
		return nil, models.NewValidationError("items must be a list of finalization objects")
	}
	if !present {
		return nil, models.NewValidationError("items parameter is required")
	}
	if err := checkBatchSize(len(items), "items"); err != nil {
		return nil, err
	}

	// No duplicate job ids within one batch (string-keyed comparison).
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if raw, ok := item["id"]; ok {
			key := duplicateKey(raw)
			if key != "" && seen[key] {
				return nil, models.NewValidationError(fmt.Sprintf("duplicate job id in batch: %s", key))
			}
			seen[key] = true
		}
	}

	opts := &FinalizeOptions{Items: items}
	if runID, _, err := argString(args, "run_id"); err != nil {
		return nil, err
	} else {
		opts.RunID = runID
	}
	if dbPath, _, err := argString(args, "db_path"); err != nil {
		return nil, err
	} else {
		opts.DBPath = dbPath
	}
	if dryRun, _, err := argBool(args, "dry_run"); err != nil {
		return nil, err
	} else {
		opts.DryRun = dryRun
	}
	return opts, nil
}

// FinalizeResumeBatch is the durable-commit phase of the two-phase
// finalize: validate artifacts, commit the DB audit fields, synchronize
// the tracker projection, and compensate when the projection write fails
// after the commit.
func (s *Service) FinalizeResumeBatch(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := decodeFinalizeOptions(args)
	if err != nil {
		return nil, err
	}

	runID := opts.RunID
	if runID == "" {
		runID = common.NewRunID("run", time.Now())
	}

	if len(opts.Items) == 0 {
		return map[string]any{
			"run_id":          runID,
			"finalized_count": 0,
			"failed_count":    0,
			"dry_run":         opts.DryRun,
			"results":         []map[string]any{},
		}, nil
	}

	writer, err := sqlite.NewJobsStatusWriter(s.logger, s.resolveDBPath(opts.DBPath), s.dbOptions())
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	if err := writer.PreflightFinalizeColumns(ctx); err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(opts.Items))
	finalized, failed := 0, 0

	for _, item := range opts.Items {
		result := s.finalizeOne(ctx, item, runID, writer, opts.DryRun)
		results = append(results, result)
		if result["success"] == true {
			finalized++
		} else {
			failed++
		}
	}

	return map[string]any{
		"run_id":          runID,
		"finalized_count": finalized,
		"failed_count":    failed,
		"dry_run":         opts.DryRun,
		"results":         results,
	}, nil
}

// finalizeOne validates preconditions and runs the commit sequence for a
// single item. The DB commits before the tracker write; a failed tracker
// write triggers the fallback-to-reviewed compensation.
func (s *Service) finalizeOne(ctx context.Context, item map[string]any, runID string, writer interfaces.JobsStatusWriter, dryRun bool) map[string]any {
	trackerPath, _ := item["tracker_path"].(string)

	failure := func(msg string) map[string]any {
		result := map[string]any{
			"tracker_path":    trackerPath,
			"resume_pdf_path": nil,
			"action":          "failed",
			"success":         false,
			"error":           msg,
		}
		if id, err := itemID(item, "id"); err == nil {
			result["id"] = id
		} else if raw, ok := item["id"]; ok {
			result["id"] = raw
		}
		return result
	}

	// Item shape.
	for key := range item {
		if key != "id" && key != "tracker_path" && key != "resume_pdf_path" {
			return failure(fmt.Sprintf("unknown field '%s' in item", key))
		}
	}
	jobID, err := itemID(item, "id")
	if err != nil {
		return failure(err.Error())
	}
	if strings.TrimSpace(trackerPath) == "" {
		return failure("item is missing required 'tracker_path'")
	}

	// Tracker must exist before anything else is derived from it.
	resolvedTracker := common.ResolveRepoPath(trackerPath)
	if info, err := os.Stat(resolvedTracker); err != nil || info.IsDir() {
		return failure(fmt.Sprintf("tracker file not found: %s", common.SanitizeErrorMessage(trackerPath)))
	}

	// Resolve artifact paths: item override wins, else tracker frontmatter.
	itemOverride, _ := item["resume_pdf_path"].(string)
	resumePDFPath, err := tracker.ResolveResumePDFPath(trackerPath, itemOverride)
	if err != nil {
		return failure("Failed to resolve resume_pdf_path: " + common.SanitizeError(err))
	}
	resumeTexPath, err := tracker.ResolveResumeTexPath(resumePDFPath)
	if err != nil {
		return failure("Failed to resolve resume.tex path: " + common.SanitizeError(err))
	}

	if ok, reason := tracker.ValidateResumeWrittenGuardrails(resumePDFPath, resumeTexPath); !ok {
		return failure(reason)
	}

	base := map[string]any{
		"id":              jobID,
		"tracker_path":    trackerPath,
		"resume_pdf_path": resumePDFPath,
	}

	if dryRun {
		base["action"] = "would_finalize"
		base["success"] = true
		return base
	}

	// Commit sequence: DB first, then the tracker projection. The order
	// is load-bearing for the compensation semantics.
	ts := time.Now().UTC()
	if err := writer.Begin(ctx); err != nil {
		base["action"] = "failed"
		base["success"] = false
		base["error"] = "DB finalization failed: " + common.SanitizeError(err)
		return base
	}
	if err := writer.FinalizeResumeWritten(ctx, jobID, resumePDFPath, runID, ts); err != nil {
		writer.Rollback()
		base["action"] = "failed"
		base["success"] = false
		base["error"] = "DB finalization failed: " + common.SanitizeError(err)
		return base
	}
	if err := writer.Commit(); err != nil {
		base["action"] = "failed"
		base["success"] = false
		base["error"] = "DB finalization failed: " + common.SanitizeError(err)
		return base
	}

	if err := tracker.UpdateStatus(trackerPath, models.TrackerResumeWritten); err != nil {
		return s.compensate(ctx, base, jobID, err, writer)
	}

	base["action"] = "finalized"
	base["success"] = true
	return base
}

// compensate restores store/projection consistency after a failed tracker
// sync: status back to reviewed with last_error set. attempt_count stays
// as the finalize left it.
func (s *Service) compensate(ctx context.Context, base map[string]any, jobID int64, trackerErr error, writer interfaces.JobsStatusWriter) map[string]any {
	sanitized := common.SanitizeError(trackerErr)
	message := "Tracker sync failed: " + sanitized

	fallbackTS := time.Now().UTC()
	if err := writer.FallbackToReviewed(ctx, jobID, message, fallbackTS); err != nil {
		base["action"] = "failed"
		base["success"] = false
		base["error"] = message + "; Fallback also failed: " + common.SanitizeError(err)
		return base
	}

	s.logger.Warn().Int64("job_id", jobID).Str("error", sanitized).Msg("Tracker sync failed after DB commit; fell back to reviewed")

	base["action"] = "failed"
	base["success"] = false
	base["error"] = message
	return base
}
