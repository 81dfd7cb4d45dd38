package tracker

import (
	"os"
	"regexp"
	"strings"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

var statusLineRe = regexp.MustCompile(`^status:`)

// UpdateStatus rewrites only the status: line inside the frontmatter block
// of a tracker file, preserving every other byte of frontmatter and body.
// The rewrite is line-level rather than a YAML re-serialization so
// formatting never drifts. The write is atomic.
func UpdateStatus(trackerPath string, status models.TrackerStatus) error {
	resolved := common.ResolveRepoPath(trackerPath)

	content, err := os.ReadFile(resolved)
	if err != nil {
		return models.NewFileNotFoundError(trackerPath, "Tracker file")
	}

	updated, err := replaceStatusLine(string(content), status)
	if err != nil {
		return err
	}

	return common.AtomicWriteFile(resolved, []byte(updated), 0644)
}

// replaceStatusLine swaps the first status: line within the frontmatter
// block. The block bounds are the first two lines consisting of ---.
func replaceStatusLine(content string, status models.TrackerStatus) (string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != "---" {
		return "", models.NewValidationError("Tracker file does not contain valid YAML frontmatter delimited by '---'")
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == "---" {
			closing = i
			break
		}
	}
	if closing < 0 {
		return "", models.NewValidationError("Tracker file does not contain valid YAML frontmatter delimited by '---'")
	}

	for i := 1; i < closing; i++ {
		if statusLineRe.MatchString(lines[i]) {
			lines[i] = "status: " + string(status)
			return strings.Join(lines, "\n"), nil
		}
	}
	return "", models.NewValidationError("Tracker frontmatter is missing required 'status' field")
}
