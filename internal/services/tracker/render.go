package tracker

import (
	"fmt"
	"strings"

	"github.com/dengnaichen/jobworkflow/internal/models"
)

// RenderTracker produces the tracker markdown for a shortlisted job with
// stable frontmatter ordering. The initial status is always Reviewed;
// artifact paths are wiki-links into the application workspace.
func RenderTracker(job models.Job, applicationSlug, applicationsDir string) string {
	var sb strings.Builder

	resumePath := fmt.Sprintf("[[%s/%s/resume/resume.pdf]]", applicationsDir, applicationSlug)
	coverPath := fmt.Sprintf("[[%s/%s/cover/cover-letter.pdf]]", applicationsDir, applicationSlug)

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("job_db_id: %d\n", job.ID))
	sb.WriteString("job_id: " + yamlScalar(job.JobID) + "\n")
	sb.WriteString("company: " + yamlScalar(job.Company) + "\n")
	sb.WriteString("position: " + yamlScalar(job.Title) + "\n")
	sb.WriteString("status: " + string(models.TrackerReviewed) + "\n")
	sb.WriteString("application_date: " + job.CapturedAt.UTC().Format("2006-01-02") + "\n")
	sb.WriteString("reference_link: " + yamlScalar(job.URL) + "\n")
	sb.WriteString("resume_path: \"" + resumePath + "\"\n")
	sb.WriteString("cover_letter_path: \"" + coverPath + "\"\n")
	sb.WriteString("---\n")
	sb.WriteString("\n")
	sb.WriteString("## Job Description\n")
	sb.WriteString("\n")
	if desc := strings.TrimSpace(job.Description); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString("## Notes\n")

	return sb.String()
}

// yamlScalar renders a frontmatter value, quoting only when the plain form
// would be ambiguous to a YAML parser.
func yamlScalar(value string) string {
	if value == "" {
		return "\"\""
	}
	if strings.Contains(value, ": ") ||
		strings.Contains(value, " #") ||
		strings.ContainsAny(value, "\"\n") ||
		strings.ContainsAny(string(value[0]), "[]{}>|&*!%@`'\"- ") ||
		strings.HasSuffix(value, ":") ||
		strings.TrimSpace(value) != value ||
		isNumericLike(value) {
		escaped := strings.ReplaceAll(value, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", " ")
		return "\"" + escaped + "\""
	}
	return value
}

func isNumericLike(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
