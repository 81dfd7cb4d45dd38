package tracker

import (
	"bytes"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

var frontmatterRe = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*\r?\n(.*)\z`)

// Parse reads and parses a tracker markdown file: YAML frontmatter
// delimited by --- lines plus the markdown body. The frontmatter must
// decode to a mapping containing a status field.
func Parse(trackerPath string) (*models.TrackerDoc, error) {
	resolved := common.ResolveRepoPath(trackerPath)

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, models.NewFileNotFoundError(trackerPath, "Tracker file")
	}
	if info.IsDir() {
		return nil, models.NewFileNotFoundError(trackerPath, "Tracker file")
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, models.NewFileNotFoundError(trackerPath, "Tracker file")
	}

	return ParseContent(string(content))
}

// ParseContent parses tracker content already in memory.
func ParseContent(content string) (*models.TrackerDoc, error) {
	match := frontmatterRe.FindStringSubmatch(content)
	if match == nil {
		return nil, models.NewValidationError("Tracker file does not contain valid YAML frontmatter delimited by '---'")
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(match[1]), &frontmatter); err != nil {
		return nil, models.NewValidationError("Invalid YAML in frontmatter: " + common.SanitizeError(err))
	}
	if frontmatter == nil {
		return nil, models.NewValidationError("Frontmatter must be a YAML mapping")
	}

	statusVal, ok := frontmatter["status"]
	if !ok {
		return nil, models.NewValidationError("Tracker frontmatter is missing required 'status' field")
	}
	status, ok := statusVal.(string)
	if !ok {
		return nil, models.NewValidationError("Tracker frontmatter 'status' must be a string")
	}

	return &models.TrackerDoc{
		Frontmatter: frontmatter,
		Body:        match[2],
		Status:      status,
	}, nil
}

var jobDescriptionHeadingRe = regexp.MustCompile(`(?i)^job\s+description$`)

// ExtractJobDescription finds the "## Job Description" section in a tracker
// body and returns its content up to the next level-1/2 heading, trimmed.
//
// The body is walked as a goldmark AST with source segments so headings
// inside fenced code blocks do not terminate the section.
func ExtractJobDescription(body string) (string, error) {
	source := []byte(body)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var (
		sectionStart = -1
		sectionEnd   = len(source)
	)

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level > 2 || heading.Lines().Len() == 0 {
			continue
		}

		if sectionStart < 0 {
			if heading.Level == 2 && jobDescriptionHeadingRe.MatchString(strings.TrimSpace(headingText(heading, source))) {
				sectionStart = heading.Lines().At(heading.Lines().Len() - 1).Stop
			}
			continue
		}

		// First level-1/2 heading after the section opens terminates it.
		// Back up from the heading text to the start of its line so the
		// "#" marker is excluded from the captured content.
		segStart := heading.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(source[:segStart], '\n') + 1
		sectionEnd = lineStart
		break
	}

	if sectionStart < 0 {
		return "", models.NewValidationError("Tracker is missing required '## Job Description' heading")
	}
	if sectionStart > sectionEnd {
		sectionStart = sectionEnd
	}
	return strings.TrimSpace(string(source[sectionStart:sectionEnd])), nil
}

func headingText(heading *ast.Heading, source []byte) string {
	var sb strings.Builder
	lines := heading.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}

// TailorContext is the subset of tracker data career_tailor consumes.
type TailorContext struct {
	Company        string
	Position       string
	ResumePath     string
	JobDBID        int64 // 0 when absent
	JobDescription string
	Doc            *models.TrackerDoc
}

// ParseForTailor parses a tracker for the career_tailor pipeline,
// validating the required company/position fields and the presence of the
// job-description section.
func ParseForTailor(trackerPath string) (*TailorContext, error) {
	doc, err := Parse(trackerPath)
	if err != nil {
		return nil, err
	}

	company, _ := doc.Frontmatter["company"].(string)
	if company == "" {
		return nil, models.NewValidationError("Tracker frontmatter is missing required 'company' field")
	}
	position, _ := doc.Frontmatter["position"].(string)
	if position == "" {
		return nil, models.NewValidationError("Tracker frontmatter is missing required 'position' field")
	}

	description, err := ExtractJobDescription(doc.Body)
	if err != nil {
		return nil, err
	}

	resumePath, _ := doc.Frontmatter["resume_path"].(string)

	return &TailorContext{
		Company:        company,
		Position:       position,
		ResumePath:     resumePath,
		JobDBID:        frontmatterJobDBID(doc.Frontmatter),
		JobDescription: description,
		Doc:            doc,
	}, nil
}

// frontmatterJobDBID extracts a positive job_db_id from frontmatter,
// accepting ints and numeric strings. Returns 0 when unresolvable.
func frontmatterJobDBID(frontmatter map[string]any) int64 {
	switch v := frontmatter["job_db_id"].(type) {
	case int:
		if v > 0 {
			return int64(v)
		}
	case int64:
		if v > 0 {
			return v
		}
	case uint64:
		return int64(v)
	case float64:
		if v > 0 && v == float64(int64(v)) {
			return int64(v)
		}
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
