// Package tools implements the tool catalog of the agent runtime: the
// registry and dispatch layer plus every built-in tool (file access, shell
// execution, content search, memory, todos, web access, task completion).
package tools

import (
	"fmt"

	"github.com/skiffworks/skiff/pkg/skiff/llm"
)

// Stable error-type identifiers. The set is closed: tools never invent new
// types at runtime, so callers and traces can switch on them.
const (
	// Input validation.
	ErrInvalidCommand     = "INVALID_COMMAND"
	ErrInvalidPattern     = "INVALID_PATTERN"
	ErrInvalidURL         = "INVALID_URL"
	ErrInvalidInput       = "INVALID_INPUT"
	ErrInvalidParameter   = "INVALID_PARAMETER"
	ErrNoURLsFound        = "NO_URLS_FOUND"
	ErrTooManyURLs        = "TOO_MANY_URLS"
	ErrMissingDescription = "MISSING_DESCRIPTION"
	ErrInvalidStatus      = "INVALID_STATUS"
	ErrMultipleInProgress = "MULTIPLE_IN_PROGRESS"

	// Filesystem.
	ErrFileNotFound      = "FILE_NOT_FOUND"
	ErrPathIsDirectory   = "PATH_IS_DIRECTORY"
	ErrNotADirectory     = "NOT_A_DIRECTORY"
	ErrTargetIsDirectory = "TARGET_IS_DIRECTORY"
	ErrDirectoryNotFound = "DIRECTORY_NOT_FOUND"
	ErrPermissionDenied  = "PERMISSION_DENIED"
	ErrFileTooLarge      = "FILE_TOO_LARGE"
	ErrNoSpaceLeft       = "NO_SPACE_LEFT"

	// Edit engine.
	ErrEditNoChange           = "EDIT_NO_CHANGE"
	ErrEditNoOccurrenceFound  = "EDIT_NO_OCCURRENCE_FOUND"
	ErrEditOccurrenceMismatch = "EDIT_OCCURRENCE_MISMATCH"
	ErrAttemptToCreate        = "ATTEMPT_TO_CREATE_EXISTING_FILE"

	// Execution.
	ErrTimeout           = "TIMEOUT"
	ErrShellNotFound     = "SHELL_NOT_FOUND"
	ErrExecutionError    = "EXECUTION_ERROR"
	ErrShellExecuteError = "SHELL_EXECUTE_ERROR"

	// Network.
	ErrWebSearchNotConfigured = "WEB_SEARCH_NOT_CONFIGURED"
	ErrWebSearchFailed        = "WEB_SEARCH_FAILED"
	ErrFetchError             = "FETCH_ERROR"
)

// ToolError is the structured error carried inside a Result.
type ToolError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Result is the wire contract every tool returns. LLMContent (a string or
// an llm.InlineData) is serialized back into the conversation;
// ReturnDisplay is the human/UI surface; Data is an optional structured
// side channel (e.g. a background PID).
type Result struct {
	LLMContent    any            `json:"llm_content"`
	ReturnDisplay string         `json:"return_display"`
	Error         *ToolError     `json:"error,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// TextResult builds a success result whose display equals its content.
func TextResult(content string) Result {
	return Result{LLMContent: content, ReturnDisplay: content}
}

// DualResult builds a success result with distinct model and display text.
func DualResult(llmContent, display string) Result {
	return Result{LLMContent: llmContent, ReturnDisplay: display}
}

// InlineResult builds a success result carrying binary inline data.
func InlineResult(mimeType, base64Data, display string) Result {
	return Result{
		LLMContent:    llm.InlineData{MIMEType: mimeType, Data: base64Data},
		ReturnDisplay: display,
	}
}

// ErrorResult builds a failure result with a taxonomy type.
func ErrorResult(errType, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{
		LLMContent:    "Error: " + msg,
		ReturnDisplay: "Error: " + msg,
		Error:         &ToolError{Message: msg, Type: errType},
	}
}

// IsError reports whether the result carries a structured error.
func (r Result) IsError() bool { return r.Error != nil }

// ContentText returns the textual form of LLMContent for logging and
// token estimation. Inline data is summarized, not expanded.
func (r Result) ContentText() string {
	switch c := r.LLMContent.(type) {
	case string:
		return c
	case llm.InlineData:
		return fmt.Sprintf("[inline data: %s, %d bytes base64]", c.MIMEType, len(c.Data))
	default:
		return fmt.Sprintf("%v", c)
	}
}
