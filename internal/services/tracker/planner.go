package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// Plan is the resolved projection target for one shortlisted job.
type Plan struct {
	TrackerPath     string // absolute path of the tracker file to write
	ApplicationSlug string
	Exists          bool // an equivalent tracker already exists
}

// PlanTracker computes the deterministic tracker path for a job:
// <trackers_dir>/YYYY-MM-DD-<company-slug>-<id>.md with the date taken
// from captured_at. When a legacy tracker in the same directory carries a
// reference_link equal to the job URL, that file is treated as the
// existing tracker and no duplicate is planned.
func PlanTracker(job models.Job, trackersDir string) (*Plan, error) {
	dir := common.ResolveRepoPath(trackersDir)

	slug := NormalizeText(job.Company)
	applicationSlug := fmt.Sprintf("%s-%d", slug, job.ID)
	filename := fmt.Sprintf("%s-%s-%d.md", job.CapturedAt.UTC().Format("2006-01-02"), slug, job.ID)
	trackerPath := filepath.Join(dir, filename)

	if _, err := os.Stat(trackerPath); err == nil {
		return &Plan{TrackerPath: trackerPath, ApplicationSlug: applicationSlug, Exists: true}, nil
	}

	if legacy := findTrackerByReferenceLink(dir, job.URL); legacy != "" {
		return &Plan{TrackerPath: legacy, ApplicationSlug: applicationSlug, Exists: true}, nil
	}

	return &Plan{TrackerPath: trackerPath, ApplicationSlug: applicationSlug, Exists: false}, nil
}

// findTrackerByReferenceLink scans trackersDir for a markdown file whose
// frontmatter reference_link matches url. Unparseable files are skipped.
func findTrackerByReferenceLink(dir, url string) string {
	if url == "" {
		return ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		doc, err := ParseContent(string(content))
		if err != nil {
			continue
		}
		if ref, _ := doc.Frontmatter["reference_link"].(string); ref == url {
			return path
		}
	}
	return ""
}

// EnsureWorkspaceDirectories creates the per-application workspace tree
// <applications_dir>/<slug>/{resume,cover,cv}. Idempotent.
func EnsureWorkspaceDirectories(applicationSlug, applicationsDir string) error {
	base := filepath.Join(common.ResolveRepoPath(applicationsDir), applicationSlug)
	for _, sub := range []string{"resume", "cover", "cv"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", sub, err)
		}
	}
	return nil
}

// ResolveWriteAction maps file existence and the force flag onto the
// tracker write action vocabulary.
func ResolveWriteAction(exists, force bool) string {
	switch {
	case !exists:
		return "created"
	case force:
		return "overwritten"
	default:
		return "skipped_exists"
	}
}
