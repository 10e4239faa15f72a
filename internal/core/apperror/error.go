// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Every failure the document store core reports is an AppError with one of the codes below.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes of the document store core.
const (
	// Caller bugs (400)
	CodeInvalidExpression = "INVALID_EXPRESSION"
	CodeInvalidRequest    = "INVALID_REQUEST"

	// Document shape (422)
	CodeTypeMismatch = "TYPE_MISMATCH"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Optimistic concurrency (409)
	CodeConflict       = "CONFLICT"
	CodePartialFailure = "PARTIAL_FAILURE"

	// Infrastructure (503 / 500)
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (id, revision, operator, failed items)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// ItemFailure describes one item of a bulk operation that the store rejected.
type ItemFailure struct {
	ID       string `json:"id"`
	Revision string `json:"revision,omitempty"`
	Code     string `json:"code"`
	Reason   string `json:"reason,omitempty"`
}

// --- Factory functions ---

// NewInvalidExpression creates an error for a malformed filter expression (400).
func NewInvalidExpression(operator, message string) *AppError {
	e := &AppError{
		Code:       CodeInvalidExpression,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
	if operator != "" {
		e.WithDetail("operator", operator)
	}
	return e
}

// NewInvalidRequest creates an error for a malformed id, revision or body (400).
func NewInvalidRequest(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates an optimistic locking error (409).
// revision is the token the caller supplied and may be empty for creates.
func NewConflict(entity, id, revision string) *AppError {
	e := &AppError{
		Code:       CodeConflict,
		Message:    "Document was modified or already exists. Re-read it and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
	if revision != "" {
		e.WithDetail("revision", revision)
	}
	return e
}

// NewPartialFailure creates a bulk error listing every item that did not succeed.
func NewPartialFailure(total int, failures []ItemFailure) *AppError {
	return &AppError{
		Code:       CodePartialFailure,
		Message:    fmt.Sprintf("%d of %d items failed", len(failures), total),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"total": total, "failures": failures},
	}
}

// NewTypeMismatch creates an error for a document field of unexpected type (422).
func NewTypeMismatch(path, expected string, got any) *AppError {
	return &AppError{
		Code:       CodeTypeMismatch,
		Message:    fmt.Sprintf("value at %s is not of type %s", path, expected),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"path": path, "expected": expected, "actual": fmt.Sprintf("%T", got)},
	}
}

// NewStoreUnavailable creates an error for transport failures and timeouts (503).
func NewStoreUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    "Document store is unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error.
// Errors without a status are reported as 500.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsConflict checks if error is CodeConflict
func IsConflict(err error) bool { return HasCode(err, CodeConflict) }

// IsInvalidExpression checks if error is CodeInvalidExpression
func IsInvalidExpression(err error) bool { return HasCode(err, CodeInvalidExpression) }

// IsInvalidRequest checks if error is CodeInvalidRequest
func IsInvalidRequest(err error) bool { return HasCode(err, CodeInvalidRequest) }

// IsTypeMismatch checks if error is CodeTypeMismatch
func IsTypeMismatch(err error) bool { return HasCode(err, CodeTypeMismatch) }

// IsStoreUnavailable checks if error is CodeStoreUnavailable
func IsStoreUnavailable(err error) bool { return HasCode(err, CodeStoreUnavailable) }

// IsPartialFailure checks if error is CodePartialFailure
func IsPartialFailure(err error) bool { return HasCode(err, CodePartialFailure) }

// AsPartialFailure returns the per-item failures of a bulk error.
func AsPartialFailure(err error) ([]ItemFailure, bool) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != CodePartialFailure {
		return nil, false
	}
	failures, ok := appErr.Details["failures"].([]ItemFailure)
	return failures, ok
}
