package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
)

// TrackerStatusOptions carries the validated update_tracker_status
// parameters.
type TrackerStatusOptions struct {
	TrackerPath  string
	TargetStatus models.TrackerStatus
	DryRun       bool
	Force        bool
}

func decodeTrackerStatusOptions(args map[string]any) (*TrackerStatusOptions, error) {
	if err := rejectUnknownKeys(args, "tracker_path", "target_status", "dry_run", "force"); err != nil {
		return nil, err
	}

	opts := &TrackerStatusOptions{}

	path, present, err := argString(args, "tracker_path")
	if err != nil {
		return nil, err
	}
	if !present || strings.TrimSpace(path) == "" {
		return nil, models.NewValidationError("tracker_path parameter is required")
	}
	opts.TrackerPath = path

	target, present, err := argString(args, "target_status")
	if err != nil {
		return nil, err
	}
	if !present || target == "" {
		return nil, models.NewValidationError("target_status parameter is required")
	}
	if !models.IsValidTrackerStatus(target) {
		return nil, models.NewValidationError(fmt.Sprintf(
			"invalid target_status '%s': must be one of %s", target, allowedTrackerStatusList()))
	}
	opts.TargetStatus = models.TrackerStatus(target)

	if dryRun, _, err := argBool(args, "dry_run"); err != nil {
		return nil, err
	} else {
		opts.DryRun = dryRun
	}
	if force, _, err := argBool(args, "force"); err != nil {
		return nil, err
	} else {
		opts.Force = force
	}
	return opts, nil
}

func allowedTrackerStatusList() string {
	names := make([]string, len(models.AllTrackerStatuses))
	for i, st := range models.AllTrackerStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// transitionAllowed is the transition policy table: same-status is a noop,
// Reviewed→Resume Written and Resume Written→Applied are forward moves,
// Rejected and Ghosted are terminal from anywhere. Everything else needs
// force.
func transitionAllowed(current, target models.TrackerStatus) bool {
	if target == models.TrackerRejected || target == models.TrackerGhosted {
		return true
	}
	switch {
	case current == models.TrackerReviewed && target == models.TrackerResumeWritten:
		return true
	case current == models.TrackerResumeWritten && target == models.TrackerApplied:
		return true
	}
	return false
}

// UpdateTrackerStatus enforces the transition policy and the Resume
// Written artifact guardrails over a single tracker file. Projection-only.
func (s *Service) UpdateTrackerStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := decodeTrackerStatusOptions(args)
	if err != nil {
		return nil, err
	}

	doc, err := tracker.Parse(opts.TrackerPath)
	if err != nil {
		return nil, err
	}

	warnings := []string{}
	response := map[string]any{
		"tracker_path":    opts.TrackerPath,
		"previous_status": doc.Status,
		"target_status":   string(opts.TargetStatus),
		"dry_run":         opts.DryRun,
		"warnings":        warnings,
	}

	// Same-status is always a noop; no guardrails, no write.
	if doc.Status == string(opts.TargetStatus) {
		action := "noop"
		if opts.DryRun {
			action = "would_noop"
		}
		response["action"] = action
		response["success"] = true
		return response, nil
	}

	current := models.TrackerStatus(doc.Status)
	if !transitionAllowed(current, opts.TargetStatus) {
		if !opts.Force {
			response["action"] = "blocked"
			response["success"] = false
			response["error"] = fmt.Sprintf(
				"transition '%s' -> '%s' violates the workflow policy; use force=true to override",
				doc.Status, opts.TargetStatus)
			return response, nil
		}
		warnings = append(warnings, fmt.Sprintf(
			"transition '%s' -> '%s' bypasses the workflow policy (forced)", doc.Status, opts.TargetStatus))
		response["warnings"] = warnings
	}

	// Resume Written guardrails hold even under force.
	if opts.TargetStatus == models.TrackerResumeWritten {
		passed, reason := s.checkResumeWrittenGuardrails(doc)
		response["guardrail_check_passed"] = passed
		if !passed {
			response["action"] = "blocked"
			response["success"] = false
			response["error"] = reason
			return response, nil
		}
	}

	if opts.DryRun {
		response["action"] = "would_update"
		response["success"] = true
		return response, nil
	}

	if err := tracker.UpdateStatus(opts.TrackerPath, opts.TargetStatus); err != nil {
		return nil, err
	}
	response["action"] = "updated"
	response["success"] = true
	return response, nil
}

// checkResumeWrittenGuardrails resolves the artifact paths from the
// tracker frontmatter and validates the Resume Written preconditions.
func (s *Service) checkResumeWrittenGuardrails(doc *models.TrackerDoc) (bool, string) {
	raw, _ := doc.Frontmatter["resume_path"].(string)
	if raw == "" {
		return false, "tracker frontmatter is missing 'resume_path'; cannot locate resume artifacts"
	}
	pdfPath := tracker.StripWikiLink(raw)
	if pdfPath == "" {
		return false, "tracker frontmatter 'resume_path' is empty after parsing"
	}
	texPath, err := tracker.ResolveResumeTexPath(pdfPath)
	if err != nil {
		return false, "failed to derive resume.tex path from resume_path"
	}
	return tracker.ValidateResumeWrittenGuardrails(pdfPath, texPath)
}
