package scraper

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/models"
)

// linkedinJobIDRe captures the numeric posting id from LinkedIn-style job
// URLs such as .../jobs/view/senior-engineer-at-acme-4284201639.
var linkedinJobIDRe = regexp.MustCompile(`linkedin\.com/jobs/view/(?:[^/?#]*?-)?(\d+)`)

// FilterCounts tallies records dropped during normalization.
type FilterCounts struct {
	SkippedNoURL         int
	SkippedNoDescription int
}

// NormalizeRecords converts raw source records into the canonical cleaned
// schema and applies the filtering rules: records without a URL are always
// dropped, and when requireDescription is set records without a
// description are dropped as well. The URL check has precedence.
func NormalizeRecords(raw []interfaces.RawRecord, siteOverride string, requireDescription bool, now time.Time) ([]models.CleanedRecord, FilterCounts) {
	cleaned := make([]models.CleanedRecord, 0, len(raw))
	var counts FilterCounts

	for _, rec := range raw {
		url := strings.TrimSpace(rec.JobURL)
		if url == "" {
			url = strings.TrimSpace(rec.JobURLDirect)
		}
		if url == "" {
			counts.SkippedNoURL++
			continue
		}

		description := strings.TrimSpace(rec.Description)
		if requireDescription && description == "" {
			counts.SkippedNoDescription++
			continue
		}

		source := siteOverride
		if source == "" {
			source = strings.TrimSpace(rec.Site)
		}
		if source == "" {
			source = "unknown"
		}

		capturedAt := now.UTC()
		if rec.DatePosted != "" {
			if parsed, err := parseDatePosted(rec.DatePosted); err == nil {
				capturedAt = parsed
			}
		}

		payload, _ := json.Marshal(rec)

		cleaned = append(cleaned, models.CleanedRecord{
			JobID:       resolveJobID(url, rec.ID),
			Title:       strings.TrimSpace(rec.Title),
			Company:     strings.TrimSpace(rec.Company),
			Description: description,
			URL:         url,
			Location:    strings.TrimSpace(rec.Location),
			Source:      source,
			CapturedAt:  capturedAt,
			PayloadJSON: string(payload),
		})
	}
	return cleaned, counts
}

// resolveJobID prefers the posting id embedded in a LinkedIn URL, falling
// back to the source-provided id.
func resolveJobID(url, sourceID string) string {
	if match := linkedinJobIDRe.FindStringSubmatch(url); match != nil {
		return match[1]
	}
	return strings.TrimSpace(sourceID)
}

func parseDatePosted(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
