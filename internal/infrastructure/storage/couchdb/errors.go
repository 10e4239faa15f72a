package couchdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"csafcms/internal/core/apperror"
)

const entityDocument = "document"

// statusError is an HTTP error answer from CouchDB.
type statusError struct {
	Status int
	Kind   string // CouchDB "error" field, e.g. "conflict", "not_found"
	Reason string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("couchdb status %d: %s: %s", e.Status, e.Kind, e.Reason)
}

func newStatusError(resp *response) *statusError {
	se := &statusError{Status: resp.status}
	var body struct {
		Error  string `json:"error"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(resp.body, &body) == nil {
		se.Kind = body.Error
		se.Reason = body.Reason
	}
	if se.Kind == "" {
		se.Kind = http.StatusText(resp.status)
	}
	return se
}

// mapError converts a store failure concerning docID/rev into an AppError.
// Errors that are already AppErrors (transport failures) pass through.
func mapError(err error, docID, rev string) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}

	switch se.Status {
	case http.StatusNotFound:
		return apperror.NewNotFound(entityDocument, docID).WithCause(se)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return apperror.NewConflict(entityDocument, docID, rev).WithCause(se)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		appErr := apperror.NewInvalidRequest("request rejected by the store, possibly the given revision is invalid").
			WithDetail("reason", se.Reason).
			WithCause(se)
		if docID != "" {
			appErr.WithDetail("id", docID)
		}
		if rev != "" {
			appErr.WithDetail("revision", rev)
		}
		return appErr
	default:
		// 401/403 mean the configured credentials are wrong; like 5xx the
		// caller cannot fix that per request.
		return apperror.NewStoreUnavailable(se).WithDetail("status", se.Status)
	}
}

// itemCode maps the error kind of a single bulk result to an error code.
func itemCode(kind string) string {
	switch kind {
	case "conflict":
		return apperror.CodeConflict
	case "not_found":
		return apperror.CodeNotFound
	case "unauthorized", "forbidden", "bad_request", "invalid":
		return apperror.CodeInvalidRequest
	default:
		return apperror.CodeStoreUnavailable
	}
}
