package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// ResolveResumePDFPath resolves the resume PDF path for an item. The item
// override wins; otherwise the tracker frontmatter resume_path is parsed
// (wiki-link or plain).
func ResolveResumePDFPath(trackerPath, itemOverride string) (string, error) {
	if itemOverride != "" {
		return itemOverride, nil
	}

	doc, err := Parse(trackerPath)
	if err != nil {
		return "", err
	}

	raw, _ := doc.Frontmatter["resume_path"].(string)
	if raw == "" {
		return "", fmt.Errorf("tracker frontmatter is missing 'resume_path' field")
	}

	path := StripWikiLink(raw)
	if path == "" {
		return "", fmt.Errorf("failed to parse resume_path from tracker frontmatter")
	}
	return path, nil
}

// ResolveResumeTexPath derives the companion resume.tex path from a resume
// PDF path (same directory).
func ResolveResumeTexPath(resumePDFPath string) (string, error) {
	if strings.TrimSpace(resumePDFPath) == "" {
		return "", fmt.Errorf("resume PDF path is empty")
	}
	return filepath.Join(filepath.Dir(resumePDFPath), "resume.tex"), nil
}

// ValidateResumeWrittenGuardrails checks the artifact preconditions that
// gate the Resume Written state:
//
//   - resume.pdf exists and has non-zero size,
//   - companion resume.tex exists,
//   - resume.tex contains none of the placeholder tokens.
//
// Returns (false, reason) on the first failed check.
func ValidateResumeWrittenGuardrails(resumePDFPath, resumeTexPath string) (bool, string) {
	pdfResolved := common.ResolveRepoPath(resumePDFPath)
	info, err := os.Stat(pdfResolved)
	if err != nil {
		return false, fmt.Sprintf("resume.pdf not found: %s", filepath.Base(resumePDFPath))
	}
	if info.Size() == 0 {
		return false, fmt.Sprintf("resume.pdf is empty: %s", filepath.Base(resumePDFPath))
	}

	texResolved := common.ResolveRepoPath(resumeTexPath)
	texContent, err := os.ReadFile(texResolved)
	if err != nil {
		return false, fmt.Sprintf("resume.tex not found: %s", filepath.Base(resumeTexPath))
	}

	for _, token := range models.PlaceholderTokens {
		if strings.Contains(string(texContent), token) {
			return false, fmt.Sprintf("resume.tex contains placeholder token '%s'; tailor the resume before marking Resume Written", token)
		}
	}
	return true, ""
}
