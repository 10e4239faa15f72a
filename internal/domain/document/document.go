// Package document defines the stored document model, the store contract and
// typed field extraction from untyped document trees.
package document

import (
	"maps"

	"csafcms/internal/core/apperror"
	"csafcms/internal/core/id"
	"csafcms/internal/domain/filter"
)

// Reserved store fields.
const (
	FieldID       = "_id"
	FieldRevision = "_rev"
	FieldDeleted  = "_deleted"
)

// IDField and RevisionField are always part of a find projection.
var (
	IDField       = filter.MustField(FieldID)
	RevisionField = filter.MustField(FieldRevision)
)

// Document is a decoded JSON object as returned by the store.
type Document map[string]any

// ID returns the store identifier or "" if absent.
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// Rev returns the revision token or "" if absent.
func (d Document) Rev() string {
	s, _ := d[FieldRevision].(string)
	return s
}

// Body returns a shallow copy without the store's identifier and revision.
func (d Document) Body() map[string]any {
	body := maps.Clone(map[string]any(d))
	if body == nil {
		body = map[string]any{}
	}
	delete(body, FieldID)
	delete(body, FieldRevision)
	return body
}

// IDAndRevision is the unit of work of a bulk delete.
type IDAndRevision struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

// Validate checks that both parts are usable. The revision is opaque and only
// checked for presence.
func (r IDAndRevision) Validate() error {
	if err := id.Validate(r.ID); err != nil {
		return err
	}
	return ValidateRevision(r.ID, r.Revision)
}

// ValidateRevision rejects a missing revision token.
func ValidateRevision(docID, rev string) error {
	if rev == "" {
		return apperror.NewInvalidRequest("revision must not be empty").
			WithDetail("id", docID)
	}
	return nil
}
