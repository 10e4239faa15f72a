package document

import (
	"context"
	"io"

	"csafcms/internal/domain/filter"
)

// Store persists documents with optimistic concurrency.
//
// Every method blocks until the store answers. Failures are *apperror.AppError
// with codes NOT_FOUND, CONFLICT, INVALID_REQUEST, PARTIAL_FAILURE or
// STORE_UNAVAILABLE; nothing is retried.
type Store interface {
	// Create writes a new document and returns its first revision.
	Create(ctx context.Context, id string, body any) (string, error)

	// Read returns the document and its current revision.
	Read(ctx context.Context, id string) (Document, string, error)

	// Update replaces the document if rev is still current and returns the new revision.
	Update(ctx context.Context, id, rev string, body any) (string, error)

	// Delete removes the document if rev is still current.
	Delete(ctx context.Context, id, rev string) error

	// BulkDelete removes many documents in one batch, reporting every failed item.
	BulkDelete(ctx context.Context, items []IDAndRevision) error

	// Find returns documents matching selector projected to fields plus _id and _rev.
	// Empty fields returns whole documents.
	Find(ctx context.Context, selector filter.Selector, fields []filter.Field) ([]Document, error)

	// ReadRaw streams the stored JSON of a document and returns its revision.
	// The caller closes the reader.
	ReadRaw(ctx context.Context, id string) (io.ReadCloser, string, error)

	// FindStream is Find without decoding: it streams the store's JSON answer,
	// an object whose "docs" array holds the matches. The caller closes the reader.
	FindStream(ctx context.Context, selector filter.Selector, fields []filter.Field) (io.ReadCloser, error)
}
