package workflow

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dengnaichen/jobworkflow/internal/models"
)

// validate is the shared validator instance for option-struct range checks.
var validate = validator.New()

// rangeMessages maps option-struct fields to caller-facing messages so
// validator failures never leak struct internals.
var rangeMessages = map[string]string{
	"ReadNewOptions.Limit":         "limit must be an integer between 1 and 1000",
	"InitTrackersOptions.Limit":    "limit must be an integer between 1 and 200",
	"ScrapeOptions.ResultsWanted":  "results_wanted must be an integer between 1 and 200",
	"ScrapeOptions.HoursOld":       "hours_old must be an integer between 1 and 168",
	"ScrapeOptions.RetryCount":     "retry_count must be an integer between 1 and 10",
	"ScrapeOptions.RetrySleepSecs": "retry_sleep_seconds must be between 0 and 300",
	"ScrapeOptions.RetryBackoff":   "retry_backoff must be between 1 and 10",
}

func validateRanges(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	if invalid, ok := err.(*validator.InvalidValidationError); ok {
		return models.NewInternalError(invalid.Error())
	}
	for _, fieldErr := range err.(validator.ValidationErrors) {
		key := fieldErr.StructNamespace()
		if msg, ok := rangeMessages[key]; ok {
			return models.NewValidationError(msg)
		}
		return models.NewValidationError(fmt.Sprintf("%s is out of range", strings.ToLower(fieldErr.StructField())))
	}
	return models.NewValidationError("request validation failed")
}

// rejectUnknownKeys enforces the closed-parameter-set rule at decode time.
func rejectUnknownKeys(args map[string]any, allowed ...string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, key := range allowed {
		allowedSet[key] = true
	}
	var unknown []string
	for key := range args {
		if !allowedSet[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return models.NewValidationError("Unknown parameter(s): " + strings.Join(unknown, ", "))
	}
	return nil
}

// argInt extracts an integer argument. JSON numbers arrive as float64;
// non-integral values are rejected.
func argInt(args map[string]any, key string) (int, bool, error) {
	raw, present := args[key]
	if !present {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, true, models.NewValidationError(fmt.Sprintf("%s must be an integer", key))
		}
		return int(v), true, nil
	default:
		return 0, true, models.NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
}

// argFloat extracts a numeric argument.
func argFloat(args map[string]any, key string) (float64, bool, error) {
	raw, present := args[key]
	if !present {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	default:
		return 0, true, models.NewValidationError(fmt.Sprintf("%s must be a number", key))
	}
}

// argString extracts a string argument.
func argString(args map[string]any, key string) (string, bool, error) {
	raw, present := args[key]
	if !present {
		return "", false, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", true, models.NewValidationError(fmt.Sprintf("%s must be a string", key))
	}
	return v, true, nil
}

// argBool extracts a boolean argument. Strings like "true" are rejected.
func argBool(args map[string]any, key string) (bool, bool, error) {
	raw, present := args[key]
	if !present {
		return false, false, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, true, models.NewValidationError(fmt.Sprintf("%s must be a boolean", key))
	}
	return v, true, nil
}

// argStringSlice extracts a []string argument.
func argStringSlice(args map[string]any, key string) ([]string, bool, error) {
	raw, present := args[key]
	if !present {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, models.NewValidationError(fmt.Sprintf("%s must be an array of strings", key))
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, models.NewValidationError(fmt.Sprintf("%s must be an array of strings", key))
	}
}

// argMapSlice extracts an array-of-objects argument.
func argMapSlice(args map[string]any, key string) ([]map[string]any, bool, error) {
	raw, present := args[key]
	if !present {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []map[string]any:
		return v, true, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, true, models.NewValidationError(fmt.Sprintf("%s must be a list of objects", key))
			}
			out = append(out, m)
		}
		return out, true, nil
	default:
		return nil, true, models.NewValidationError(fmt.Sprintf("%s must be a list of objects", key))
	}
}

// checkBatchSize enforces the universal 0-100 batch bound.
func checkBatchSize(n int, what string) error {
	if n > 100 {
		return models.NewValidationError(fmt.Sprintf("%s batch size %d exceeds the maximum of 100", what, n))
	}
	return nil
}

// duplicateKey renders an id value for string-keyed duplicate detection so
// mixed-type duplicates (3 vs "3" vs 3.0) are caught without degrading to
// an internal error.
func duplicateKey(raw any) string {
	switch v := raw.(type) {
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// itemID extracts a positive integer id from a batch item. The error
// vocabulary matches the per-item messages callers assert on.
func itemID(item map[string]any, key string) (int64, error) {
	raw, present := item[key]
	if !present {
		return 0, fmt.Errorf("missing required field '%s'", key)
	}
	switch v := raw.(type) {
	case bool:
		return 0, fmt.Errorf("invalid job id: must be a positive integer")
	case int:
		if v <= 0 {
			return 0, fmt.Errorf("job id must be a positive integer")
		}
		return int64(v), nil
	case int64:
		if v <= 0 {
			return 0, fmt.Errorf("job id must be a positive integer")
		}
		return v, nil
	case float64:
		if v != math.Trunc(v) || v <= 0 {
			return 0, fmt.Errorf("job id must be a positive integer")
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("invalid job id: must be a positive integer")
	}
}
