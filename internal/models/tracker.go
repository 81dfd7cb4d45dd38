package models

// TrackerStatus is the tracker-facing status vocabulary shown to humans in
// the markdown vault. It never mixes with JobStatus.
type TrackerStatus string

const (
	TrackerReviewed      TrackerStatus = "Reviewed"
	TrackerResumeWritten TrackerStatus = "Resume Written"
	TrackerApplied       TrackerStatus = "Applied"
	TrackerInterview     TrackerStatus = "Interview"
	TrackerOffer         TrackerStatus = "Offer"
	TrackerRejected      TrackerStatus = "Rejected"
	TrackerGhosted       TrackerStatus = "Ghosted"
)

// AllTrackerStatuses lists the seven canonical tracker statuses.
var AllTrackerStatuses = []TrackerStatus{
	TrackerReviewed,
	TrackerResumeWritten,
	TrackerApplied,
	TrackerInterview,
	TrackerOffer,
	TrackerRejected,
	TrackerGhosted,
}

// IsValidTrackerStatus reports whether s is one of the canonical tracker
// statuses (case-sensitive).
func IsValidTrackerStatus(s string) bool {
	for _, st := range AllTrackerStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// TrackerDoc is a parsed tracker markdown file: decoded frontmatter, the
// raw body, and the frontmatter status as a convenience field.
type TrackerDoc struct {
	Frontmatter map[string]any
	Body        string
	Status      string
}

// PlaceholderTokens are the reserved template substrings whose presence in
// a resume.tex blocks the Resume Written transition.
var PlaceholderTokens = []string{
	"PROJECT-AI-",
	"PROJECT-BE-",
	"WORK-BULLET-POINT-",
}
