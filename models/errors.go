package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes used in API responses and internal error handling.
const (
	// Validation: rejected before any navigation happens.
	ErrCodeEmptyQuery = "INVALID_QUERY"

	// Infrastructure: fatal, aborts the run.
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	ErrCodeBrowserCrash       = "BROWSER_CRASH"

	// Navigation / timeout.
	ErrCodeTimeout    = "SCRAPE_TIMEOUT"
	ErrCodeNavigation = "NAVIGATION_FAILED"

	// Enrichment: recorded per result, never aborts the run.
	ErrCodeProfileFetch = "PROFILE_FETCH_FAILED"
	ErrCodeProfileParse = "PROFILE_PARSE_FAILED"
	ErrCodeLoginWall    = "LOGIN_WALL"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ErrorCode returns the code of the first ScrapeError in err's chain,
// or "" when there is none.
func ErrorCode(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsValidation reports whether err is a pre-flight validation failure.
func IsValidation(err error) bool {
	return ErrorCode(err) == ErrCodeEmptyQuery
}

// IsInfrastructure reports whether err means the browser itself is gone.
func IsInfrastructure(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeBrowserUnavailable, ErrCodeBrowserCrash:
		return true
	}
	return false
}

// AsScrapeError returns err as a ScrapeError, wrapping unknown errors
// under fallbackCode.
func AsScrapeError(err error, fallbackCode string) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(fallbackCode, err.Error(), err)
}

// transientMarkers are error fragments produced when the page navigates
// away while an evaluation or wait is in flight.
var transientMarkers = []string{
	"execution context was destroyed",
	"cannot find context with specified id",
	"inspected target navigated or closed",
	"node with given id does not belong to the document",
	"could not find node with given id",
	"frame was detached",
	"navigation interrupted",
}

// IsTransient reports whether err is known navigation noise that goes
// away once the DOM settles.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
