package tracker

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeText lowercases text, collapses every run of non-alphanumeric
// characters into a single underscore, and trims leading/trailing
// underscores. Empty input normalizes to "query".
func NormalizeText(text string) string {
	normalized := nonAlnumRe.ReplaceAllString(strings.ToLower(text), "_")
	normalized = strings.Trim(normalized, "_")
	if normalized == "" {
		return "query"
	}
	return normalized
}

var resumePathSlugRe = regexp.MustCompile(`(?:^|/)([^/]+)/resume/resume\.pdf$`)

// ExtractSlugFromResumePath pulls the application slug out of a canonical
// resume_path value, accepting both the wiki-link form
// "[[<apps_root>/<slug>/resume/resume.pdf]]" and the plain-path form.
// Returns "" when the path does not match the canonical pattern.
func ExtractSlugFromResumePath(resumePath string) string {
	path := StripWikiLink(resumePath)
	match := resumePathSlugRe.FindStringSubmatch(path)
	if match == nil {
		return ""
	}
	return match[1]
}

// ResolveApplicationSlug resolves the deterministic workspace slug for a
// tracker, in priority order:
//
//  1. slug embedded in the canonical resume_path,
//  2. normalize(company) + "-" + job_db_id,
//  3. normalize(company) + "-" + normalize(position).
func ResolveApplicationSlug(company, position, resumePath string, jobDBID int64) string {
	if slug := ExtractSlugFromResumePath(resumePath); slug != "" {
		return slug
	}
	if jobDBID > 0 {
		return NormalizeText(company) + "-" + strconv.FormatInt(jobDBID, 10)
	}
	return NormalizeText(company) + "-" + NormalizeText(position)
}

// StripWikiLink removes an Obsidian wiki-link wrapper from a path value,
// returning the inner path trimmed. Plain paths pass through.
func StripWikiLink(value string) string {
	v := strings.TrimSpace(value)
	v = strings.TrimPrefix(v, "[[")
	v = strings.TrimSuffix(v, "]]")
	return strings.TrimSpace(v)
}
