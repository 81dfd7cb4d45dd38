package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// updateItem is one validated entry of a bulk status update.
type updateItem struct {
	ID     int64
	Status models.JobStatus
}

// UpdateStatusOptions carries the validated bulk_update_job_status
// parameters.
type UpdateStatusOptions struct {
	Updates []map[string]any
	DBPath  string
}

func decodeUpdateStatusOptions(args map[string]any) (*UpdateStatusOptions, error) {
	if err := rejectUnknownKeys(args, "updates", "db_path"); err != nil {
		return nil, err
	}

	updates, present, err := argMapSlice(args, "updates")
	if err != nil {
		return nil, models.NewValidationError("updates must be a list of update objects")
	}
	if !present {
		return nil, models.NewValidationError("updates parameter is required")
	}
	if err := checkBatchSize(len(updates), "updates"); err != nil {
		return nil, err
	}

	// String-keyed duplicate detection catches mixed-type duplicates.
	seen := make(map[string]bool, len(updates))
	for _, item := range updates {
		if raw, ok := item["id"]; ok {
			key := duplicateKey(raw)
			if key != "" && seen[key] {
				return nil, models.NewValidationError(fmt.Sprintf("duplicate job id in batch: %s", key))
			}
			seen[key] = true
		}
	}

	opts := &UpdateStatusOptions{Updates: updates}
	if dbPath, _, err := argString(args, "db_path"); err != nil {
		return nil, err
	} else {
		opts.DBPath = dbPath
	}
	return opts, nil
}

// validateUpdateItem checks one update entry: positive integer id, no
// unknown fields, status in the allowed set with no surrounding
// whitespace.
func validateUpdateItem(item map[string]any) (updateItem, error) {
	var out updateItem

	for key := range item {
		if key != "id" && key != "status" {
			return out, fmt.Errorf("unknown field '%s' in update item", key)
		}
	}

	id, err := itemID(item, "id")
	if err != nil {
		return out, err
	}
	out.ID = id

	rawStatus, present := item["status"]
	if !present {
		return out, fmt.Errorf("missing required field 'status'")
	}
	status, ok := rawStatus.(string)
	if !ok {
		return out, fmt.Errorf("status must be a string")
	}
	if status != strings.TrimSpace(status) {
		return out, fmt.Errorf("status contains surrounding whitespace")
	}
	if !models.IsValidJobStatus(status) {
		return out, fmt.Errorf("invalid status '%s': must be one of %s", status, allowedStatusList())
	}
	out.Status = models.JobStatus(status)
	return out, nil
}

func allowedStatusList() string {
	names := make([]string, len(models.AllJobStatuses))
	for i, st := range models.AllJobStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}

// BulkUpdateJobStatus applies a batch of status updates atomically:
// either every row is written inside one transaction or none is.
func (s *Service) BulkUpdateJobStatus(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := decodeUpdateStatusOptions(args)
	if err != nil {
		return nil, err
	}

	if len(opts.Updates) == 0 {
		return map[string]any{
			"updated_count": 0,
			"failed_count":  0,
			"results":       []map[string]any{},
		}, nil
	}

	// Phase 1: shape validation for every item before any DB access.
	items := make([]updateItem, len(opts.Updates))
	itemErrs := make([]error, len(opts.Updates))
	anyInvalid := false
	for i, raw := range opts.Updates {
		items[i], itemErrs[i] = validateUpdateItem(raw)
		if itemErrs[i] != nil {
			anyInvalid = true
		}
	}
	if anyInvalid {
		return abortedBatchResponse(opts.Updates, items, itemErrs), nil
	}

	writer, err := sqlite.NewJobsStatusWriter(s.logger, s.resolveDBPath(opts.DBPath), s.dbOptions())
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	if err := writer.PreflightUpdateColumns(ctx); err != nil {
		return nil, err
	}

	// Phase 2: existence validation for every id; missing ids abort the
	// batch before any write.
	for i, item := range items {
		exists, err := writer.JobExists(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			itemErrs[i] = fmt.Errorf("job id %d does not exist", item.ID)
			anyInvalid = true
		}
	}
	if anyInvalid {
		return abortedBatchResponse(opts.Updates, items, itemErrs), nil
	}

	// Phase 3: apply every update in one transaction with one shared
	// timestamp; roll back on any primitive failure.
	ts := time.Now().UTC()
	if err := writer.Begin(ctx); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := writer.UpdateStatus(ctx, item.ID, item.Status, ts); err != nil {
			writer.Rollback()
			return nil, err
		}
	}
	if err := writer.Commit(); err != nil {
		return nil, err
	}

	results := make([]map[string]any, len(items))
	for i, item := range items {
		results[i] = map[string]any{"id": item.ID, "success": true}
	}
	return map[string]any{
		"updated_count": len(items),
		"failed_count":  0,
		"results":       results,
	}, nil
}

// abortedBatchResponse renders the all-or-nothing rejection: offending
// items carry their own error, valid items are reported unapplied, and
// failed_count counts only the offenders.
func abortedBatchResponse(raw []map[string]any, items []updateItem, itemErrs []error) map[string]any {
	results := make([]map[string]any, len(raw))
	failed := 0
	for i := range raw {
		entry := map[string]any{"success": false}
		if items[i].ID > 0 {
			entry["id"] = items[i].ID
		} else if idRaw, ok := raw[i]["id"]; ok {
			entry["id"] = idRaw
		}
		if itemErrs[i] != nil {
			entry["error"] = itemErrs[i].Error()
			failed++
		} else {
			entry["error"] = "not applied: batch aborted due to another item's validation failure"
		}
		results[i] = entry
	}
	return map[string]any{
		"updated_count": 0,
		"failed_count":  failed,
		"results":       results,
	}
}
