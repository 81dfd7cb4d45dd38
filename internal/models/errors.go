package models

import "fmt"

// ErrorCode identifies the category of a surfaced tool error.
type ErrorCode string

const (
	ErrValidation       ErrorCode = "VALIDATION_ERROR"
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	ErrTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrDBNotFound       ErrorCode = "DB_NOT_FOUND"
	ErrDB               ErrorCode = "DB_ERROR"
	ErrCompile          ErrorCode = "COMPILE_ERROR"
	ErrInternal         ErrorCode = "INTERNAL_ERROR"
)

// ToolError is the structured error returned at the top level of a tool
// response. Message is always sanitized before it reaches the caller.
type ToolError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToResponse renders the error as the wire-level error envelope.
func (e *ToolError) ToResponse() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":      string(e.Code),
			"message":   e.Message,
			"retryable": e.Retryable,
		},
	}
}

func NewValidationError(msg string) *ToolError {
	return &ToolError{Code: ErrValidation, Message: msg, Retryable: false}
}

func NewFileNotFoundError(path, kind string) *ToolError {
	return &ToolError{Code: ErrFileNotFound, Message: fmt.Sprintf("%s not found: %s", kind, path), Retryable: false}
}

func NewTemplateNotFoundError(path string) *ToolError {
	return &ToolError{Code: ErrTemplateNotFound, Message: fmt.Sprintf("Resume template not found: %s", path), Retryable: false}
}

func NewDBNotFoundError(path string) *ToolError {
	return &ToolError{Code: ErrDBNotFound, Message: fmt.Sprintf("Database file not found: %s", path), Retryable: false}
}

func NewDBError(msg string) *ToolError {
	return &ToolError{Code: ErrDB, Message: msg, Retryable: true}
}

func NewCompileError(msg string) *ToolError {
	return &ToolError{Code: ErrCompile, Message: msg, Retryable: true}
}

func NewInternalError(msg string) *ToolError {
	return &ToolError{Code: ErrInternal, Message: "Internal error: " + msg, Retryable: true}
}

// AsToolError unwraps err into a *ToolError, or wraps it as INTERNAL_ERROR
// with the provided sanitizer applied.
func AsToolError(err error, sanitize func(string) string) *ToolError {
	if te, ok := err.(*ToolError); ok {
		return te
	}
	return NewInternalError(sanitize(err.Error()))
}
