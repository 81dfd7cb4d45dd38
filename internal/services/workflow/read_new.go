package workflow

import (
	"context"

	"github.com/dengnaichen/jobworkflow/internal/models"
	"github.com/dengnaichen/jobworkflow/internal/storage/sqlite"
)

// ReadNewOptions carries the validated bulk_read_new_jobs parameters.
type ReadNewOptions struct {
	Limit  int `validate:"min=1,max=1000"`
	Cursor string
	DBPath string
}

func decodeReadNewOptions(args map[string]any) (*ReadNewOptions, error) {
	if err := rejectUnknownKeys(args, "limit", "cursor", "db_path"); err != nil {
		return nil, err
	}

	opts := &ReadNewOptions{Limit: 50}

	if limit, present, err := argInt(args, "limit"); err != nil {
		return nil, err
	} else if present {
		opts.Limit = limit
	}

	cursor, present, err := argString(args, "cursor")
	if err != nil {
		return nil, err
	}
	if present {
		if cursor == "" {
			return nil, models.NewValidationError("cursor must be a non-empty string when provided")
		}
		opts.Cursor = cursor
	}

	if dbPath, _, err := argString(args, "db_path"); err != nil {
		return nil, err
	} else {
		opts.DBPath = dbPath
	}

	if err := validateRanges(opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// BulkReadNewJobs returns one deterministic page of status='new' rows.
func (s *Service) BulkReadNewJobs(ctx context.Context, args map[string]any) (map[string]any, error) {
	opts, err := decodeReadNewOptions(args)
	if err != nil {
		return nil, err
	}

	reader, err := sqlite.NewJobsReader(s.logger, s.resolveDBPath(opts.DBPath), s.dbOptions())
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	jobs, hasMore, nextCursor, err := reader.QueryNew(ctx, opts.Limit, opts.Cursor)
	if err != nil {
		return nil, err
	}

	jobList := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		jobList = append(jobList, jobJSON(job))
	}

	response := map[string]any{
		"jobs":        jobList,
		"count":       len(jobList),
		"has_more":    hasMore,
		"next_cursor": nil,
	}
	if nextCursor != "" {
		response["next_cursor"] = nextCursor
	}
	return response, nil
}

// jobJSON renders a job row for the read response; empty strings surface
// as nulls so callers see the same shape the store holds.
func jobJSON(job models.Job) map[string]any {
	out := map[string]any{
		"id":     job.ID,
		"url":    job.URL,
		"status": string(job.Status),
	}
	putNullable := func(key, value string) {
		if value == "" {
			out[key] = nil
		} else {
			out[key] = value
		}
	}
	putNullable("job_id", job.JobID)
	putNullable("title", job.Title)
	putNullable("company", job.Company)
	putNullable("description", job.Description)
	putNullable("location", job.Location)
	putNullable("source", job.Source)
	if job.CapturedAt.IsZero() {
		out["captured_at"] = nil
	} else {
		out["captured_at"] = sqlite.FormatTimestamp(job.CapturedAt)
	}
	return out
}
