package common

import (
	"regexp"
	"strings"
)

var (
	sqlFragmentRe  = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b.*`)
	windowsPathRe  = regexp.MustCompile(`^[A-Za-z]:\\`)
	tokenStripSet  = ".,;:()[]{}\"'"
	maxMessageSize = 200
)

// SanitizeErrorMessage reduces an error message to a caller-safe summary:
// first line only, SQL fragments redacted to [SQL query], absolute path
// tokens replaced with [path], capped at 200 characters.
func SanitizeErrorMessage(msg string) string {
	if idx := strings.IndexAny(msg, "\r\n"); idx >= 0 {
		msg = msg[:idx]
	}
	msg = strings.TrimSpace(msg)

	msg = sqlFragmentRe.ReplaceAllString(msg, "[SQL query]")

	tokens := strings.Fields(msg)
	for i, token := range tokens {
		stripped := strings.Trim(token, tokenStripSet)
		if strings.HasPrefix(stripped, "/") || windowsPathRe.MatchString(stripped) {
			tokens[i] = strings.Replace(token, stripped, "[path]", 1)
		}
	}
	msg = strings.Join(tokens, " ")

	if len(msg) > maxMessageSize {
		msg = msg[:maxMessageSize-3] + "..."
	}
	return msg
}

// SanitizeError is a convenience wrapper over SanitizeErrorMessage.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorMessage(err.Error())
}
