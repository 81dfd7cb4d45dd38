package scraper

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dengnaichen/jobworkflow/internal/common"
	"github.com/dengnaichen/jobworkflow/internal/interfaces"
	"github.com/dengnaichen/jobworkflow/internal/services/tracker"
)

// CaptureFilename derives the per-term capture artifact name:
// jobspy_<site>_<term-slug>_<loc-slug>_<hours>h.json
func CaptureFilename(site, term, location string, hoursOld int) string {
	return fmt.Sprintf("jobspy_%s_%s_%s_%dh.json",
		site, tracker.NormalizeText(term), tracker.NormalizeText(location), hoursOld)
}

// WriteCapture writes the raw records for one term as a pretty-printed
// JSON array into captureDir, atomically. Returns the written path.
func WriteCapture(captureDir, site, term, location string, hoursOld int, records []interfaces.RawRecord) (string, error) {
	if records == nil {
		records = []interfaces.RawRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode capture records: %w", err)
	}

	path := filepath.Join(common.ResolveRepoPath(captureDir), CaptureFilename(site, term, location, hoursOld))
	if err := common.AtomicWriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
