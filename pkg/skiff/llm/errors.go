package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies API errors for retry decisions.
type ErrorKind int

const (
	ErrRetryable  ErrorKind = iota // transient 5xx
	ErrRateLimit                   // 429, should respect Retry-After
	ErrOverloaded                  // 529 or "overloaded" in body
	ErrTimeout                     // request timeout / deadline exceeded
	ErrAuth                        // 401, 403
	ErrBilling                     // 402 or quota exhausted
	ErrContext                     // context window exceeded
	ErrBadRequest                  // 400
	ErrFatal                       // everything else
)

// String returns a human-readable label for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrRetryable:
		return "retryable"
	case ErrRateLimit:
		return "rate_limit"
	case ErrOverloaded:
		return "overloaded"
	case ErrTimeout:
		return "timeout"
	case ErrAuth:
		return "auth"
	case ErrBilling:
		return "billing"
	case ErrContext:
		return "context"
	case ErrBadRequest:
		return "bad_request"
	case ErrFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Retryable reports whether the kind warrants another attempt.
func (k ErrorKind) Retryable() bool {
	return k == ErrRetryable || k == ErrRateLimit || k == ErrOverloaded || k == ErrTimeout
}

// APIError captures HTTP status, response body, and optional Retry-After.
type APIError struct {
	StatusCode    int
	Body          string
	RetryAfterSec int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Kind classifies the error from its status code and body.
func (e *APIError) Kind() ErrorKind {
	return classifyAPIError(e.StatusCode, e.Body)
}

// IsContextOverflow reports whether err is a context-window-exceeded failure.
func IsContextOverflow(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind() == ErrContext
	}
	return false
}

// classifyAPIError determines the error kind from status code and body.
func classifyAPIError(statusCode int, body string) ErrorKind {
	bodyLower := strings.ToLower(body)

	// Context overflow takes priority: it often arrives as a plain 400.
	if strings.Contains(bodyLower, "context_length_exceeded") ||
		strings.Contains(bodyLower, "maximum context length") {
		return ErrContext
	}

	if statusCode == 402 ||
		strings.Contains(bodyLower, "billing") ||
		strings.Contains(bodyLower, "quota") ||
		strings.Contains(bodyLower, "insufficient_quota") ||
		strings.Contains(bodyLower, "payment required") {
		return ErrBilling
	}

	if statusCode == 429 ||
		strings.Contains(bodyLower, "rate_limit") ||
		strings.Contains(bodyLower, "rate limit") ||
		strings.Contains(bodyLower, "too many requests") {
		return ErrRateLimit
	}

	if statusCode == 529 ||
		strings.Contains(bodyLower, "overloaded") ||
		strings.Contains(bodyLower, "capacity") {
		return ErrOverloaded
	}

	if strings.Contains(bodyLower, "timeout") ||
		strings.Contains(bodyLower, "deadline") ||
		strings.Contains(bodyLower, "timed out") {
		return ErrTimeout
	}

	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401, 403:
		return ErrAuth
	case 500, 502, 503, 521, 522, 523, 524:
		return ErrRetryable
	default:
		if statusCode >= 500 {
			return ErrRetryable
		}
		return ErrFatal
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
