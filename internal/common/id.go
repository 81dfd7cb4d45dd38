package common

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a batch run identifier in the form
// <prefix>_YYYYMMDD_<8-hex>, e.g. scrape_20260206_8f2f8f1c.
func NewRunID(prefix string, now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return prefix + "_" + now.UTC().Format("20060102") + "_" + hex
}
