// Package id generates and validates document identifiers.
// Identifiers are assigned by the caller before the first write and never change.
package id

import (
	"strings"

	"github.com/google/uuid"

	"csafcms/internal/core/apperror"
)

// New generates a new UUIDv7 (time-ordered UUID) rendered in canonical form.
// Time ordering keeps fresh advisories adjacent in the store's _id b-tree.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if V7 fails (should never happen)
		return uuid.NewString()
	}
	return id.String()
}

// Validate checks that a store identifier is usable as a document key.
// Keys starting with an underscore are reserved by the store.
func Validate(s string) error {
	switch {
	case s == "":
		return apperror.NewInvalidRequest("document id must not be empty")
	case strings.HasPrefix(s, "_"):
		return apperror.NewInvalidRequest("document id must not start with an underscore").
			WithDetail("id", s)
	}
	return nil
}
