package models

import "time"

// JobStatus is the database-facing status vocabulary. It is deliberately
// disjoint from TrackerStatus at the string level.
type JobStatus string

const (
	JobStatusNew           JobStatus = "new"
	JobStatusShortlist     JobStatus = "shortlist"
	JobStatusReviewed      JobStatus = "reviewed"
	JobStatusReject        JobStatus = "reject"
	JobStatusResumeWritten JobStatus = "resume_written"
	JobStatusApplied       JobStatus = "applied"
)

// AllJobStatuses lists every allowed DB status in declaration order.
var AllJobStatuses = []JobStatus{
	JobStatusNew,
	JobStatusShortlist,
	JobStatusReviewed,
	JobStatusReject,
	JobStatusResumeWritten,
	JobStatusApplied,
}

// IsValidJobStatus reports whether s (case-sensitive, untrimmed) is an
// allowed DB status value.
func IsValidJobStatus(s string) bool {
	for _, st := range AllJobStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Job is one row of the jobs table. Nullable text columns are represented
// as plain strings with empty meaning NULL; readers scan NULL as empty, and
// the read response renders empty strings as null on the way out.
type Job struct {
	ID          int64
	JobID       string
	Title       string
	Company     string
	Description string
	URL         string
	Location    string
	Source      string
	Status      JobStatus
	CapturedAt  time.Time
	PayloadJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Finalize audit fields. Zero values mean NULL.
	ResumePDFPath   string
	ResumeWrittenAt time.Time
	RunID           string
	AttemptCount    int
	LastError       string
}

// CleanedRecord is a normalized scrape record ready for insertion.
type CleanedRecord struct {
	JobID       string
	Title       string
	Company     string
	Description string
	URL         string
	Location    string
	Source      string
	CapturedAt  time.Time
	PayloadJSON string
}
