package couchdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"csafcms/internal/core/apperror"
	"csafcms/internal/core/id"
	"csafcms/internal/domain/document"
	"csafcms/internal/domain/filter"
)

// writeResult is CouchDB's answer to a single document write.
type writeResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Create writes a new document under docID and returns its revision.
// An existing docID yields CONFLICT.
func (c *Client) Create(ctx context.Context, docID string, body any) (string, error) {
	if err := id.Validate(docID); err != nil {
		return "", err
	}
	payload, err := encodeBody(body, "")
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, request{
		op:     "create",
		method: http.MethodPut,
		path:   c.dbPath(docID),
		body:   payload,
		docID:  docID,
	})
	if err != nil {
		return "", mapError(err, docID, "")
	}

	var res writeResult
	if err := decode("create", resp, &res); err != nil {
		return "", err
	}
	return res.Rev, nil
}

// Read returns the document stored under docID with its current revision.
func (c *Client) Read(ctx context.Context, docID string) (document.Document, string, error) {
	if err := id.Validate(docID); err != nil {
		return nil, "", err
	}

	resp, err := c.do(ctx, request{
		op:     "read",
		method: http.MethodGet,
		path:   c.dbPath(docID),
		docID:  docID,
	})
	if err != nil {
		return nil, "", mapError(err, docID, "")
	}

	var doc document.Document
	if err := decode("read", resp, &doc); err != nil {
		return nil, "", err
	}
	return doc, doc.Rev(), nil
}

// ReadRaw streams the stored JSON of docID, including _id and _rev, without
// decoding it, and returns the revision from the ETag header. The caller must
// close the reader.
func (c *Client) ReadRaw(ctx context.Context, docID string) (io.ReadCloser, string, error) {
	if err := id.Validate(docID); err != nil {
		return nil, "", err
	}

	body, header, err := c.stream(ctx, request{
		op:     "read_raw",
		method: http.MethodGet,
		path:   c.dbPath(docID),
		docID:  docID,
	})
	if err != nil {
		return nil, "", mapError(err, docID, "")
	}
	return body, strings.Trim(header.Get("ETag"), `"`), nil
}

// Update replaces docID if rev is its current revision and returns the new one.
func (c *Client) Update(ctx context.Context, docID, rev string, body any) (string, error) {
	if err := id.Validate(docID); err != nil {
		return "", err
	}
	if err := document.ValidateRevision(docID, rev); err != nil {
		return "", err
	}
	payload, err := encodeBody(body, rev)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, request{
		op:     "update",
		method: http.MethodPut,
		path:   c.dbPath(docID),
		body:   payload,
		docID:  docID,
	})
	if err != nil {
		return "", c.writeError(ctx, err, docID, rev)
	}

	var res writeResult
	if err := decode("update", resp, &res); err != nil {
		return "", err
	}
	return res.Rev, nil
}

// Delete removes docID if rev is its current revision.
func (c *Client) Delete(ctx context.Context, docID, rev string) error {
	if err := id.Validate(docID); err != nil {
		return err
	}
	if err := document.ValidateRevision(docID, rev); err != nil {
		return err
	}

	_, err := c.do(ctx, request{
		op:     "delete",
		method: http.MethodDelete,
		path:   c.dbPath(docID),
		query:  url.Values{"rev": []string{rev}},
		docID:  docID,
	})
	if err != nil {
		return c.writeError(ctx, err, docID, rev)
	}
	return nil
}

// writeError maps a failed update or delete. CouchDB answers 409 both for a
// stale revision and for a document that never existed or was deleted, so a
// conflict is confirmed with a HEAD request before it is reported.
func (c *Client) writeError(ctx context.Context, err error, docID, rev string) error {
	mapped := mapError(err, docID, rev)
	if !apperror.IsConflict(mapped) {
		return mapped
	}

	_, headErr := c.do(ctx, request{
		op:     "exists",
		method: http.MethodHead,
		path:   c.dbPath(docID),
		docID:  docID,
	})
	if headErr != nil && apperror.IsNotFound(mapError(headErr, docID, rev)) {
		return apperror.NewNotFound(entityDocument, docID).
			WithDetail("revision", rev).
			WithCause(err)
	}
	return mapped
}

type bulkDeleteDoc struct {
	ID      string `json:"_id"`
	Rev     string `json:"_rev"`
	Deleted bool   `json:"_deleted"`
}

type bulkResult struct {
	ID     string `json:"id"`
	Rev    string `json:"rev,omitempty"`
	OK     bool   `json:"ok,omitempty"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// BulkDelete submits all deletions as one _bulk_docs batch. The store applies
// each item independently; if any item fails the returned PARTIAL_FAILURE
// lists every failed item while the others stay deleted.
func (c *Client) BulkDelete(ctx context.Context, items []document.IDAndRevision) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]bulkDeleteDoc, 0, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("position", i)
			}
			return err
		}
		docs = append(docs, bulkDeleteDoc{ID: item.ID, Rev: item.Revision, Deleted: true})
	}

	payload, err := json.Marshal(map[string]any{"docs": docs})
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encode bulk delete: %w", err))
	}

	resp, err := c.do(ctx, request{
		op:     "bulk_delete",
		method: http.MethodPost,
		path:   c.dbPath("_bulk_docs"),
		body:   payload,
	})
	if err != nil {
		return mapError(err, "", "")
	}

	var results []bulkResult
	if err := decode("bulk_delete", resp, &results); err != nil {
		return err
	}

	failures := collectFailures(items, results)
	if len(failures) == 0 {
		return nil
	}

	c.log.WithContext(ctx).Warnw("bulk delete partially failed",
		"total", len(items),
		"failed", len(failures),
	)
	return apperror.NewPartialFailure(len(items), failures)
}

// collectFailures pairs every submitted item with its result. Results come
// back in submission order; an item without a matching result is reported
// as failed because its outcome is unknown.
func collectFailures(items []document.IDAndRevision, results []bulkResult) []apperror.ItemFailure {
	var failures []apperror.ItemFailure
	for i, item := range items {
		res, ok := resultFor(i, item.ID, results)
		switch {
		case !ok:
			failures = append(failures, apperror.ItemFailure{
				ID:       item.ID,
				Revision: item.Revision,
				Code:     apperror.CodeStoreUnavailable,
				Reason:   "no result returned for item",
			})
		case res.Error != "":
			failures = append(failures, apperror.ItemFailure{
				ID:       item.ID,
				Revision: item.Revision,
				Code:     itemCode(res.Error),
				Reason:   res.Reason,
			})
		}
	}
	return failures
}

func resultFor(i int, docID string, results []bulkResult) (bulkResult, bool) {
	if i < len(results) && results[i].ID == docID {
		return results[i], true
	}
	for _, r := range results {
		if r.ID == docID {
			return r, true
		}
	}
	return bulkResult{}, false
}

// FindQuery is a _find request.
type FindQuery struct {
	Selector filter.Selector
	// Fields to project; _id and _rev are always added. Empty returns whole documents.
	Fields []filter.Field
	// Limit of documents per page; zero leaves the store's default.
	Limit int
	// Bookmark continues a previous page.
	Bookmark string
}

// FindResult is one page of a _find.
type FindResult struct {
	Docs     []document.Document
	Bookmark string
	Warning  string
}

// Find returns documents matching selector, projected to fields plus _id and
// _rev. It issues a single request, so the store's default page limit applies;
// use FindAll to follow bookmarks.
func (c *Client) Find(ctx context.Context, selector filter.Selector, fields []filter.Field) ([]document.Document, error) {
	page, err := c.FindPage(ctx, FindQuery{Selector: selector, Fields: fields})
	if err != nil {
		return nil, err
	}
	return page.Docs, nil
}

// FindAll follows bookmarks until the store returns a short page.
func (c *Client) FindAll(ctx context.Context, selector filter.Selector, fields []filter.Field) ([]document.Document, error) {
	var (
		all      []document.Document
		bookmark string
	)
	for {
		page, err := c.FindPage(ctx, FindQuery{
			Selector: selector,
			Fields:   fields,
			Limit:    c.cfg.FindPageSize,
			Bookmark: bookmark,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Docs...)
		if len(page.Docs) < c.cfg.FindPageSize || page.Bookmark == "" || page.Bookmark == bookmark {
			return all, nil
		}
		bookmark = page.Bookmark
	}
}

// FindStream runs one _find request like Find and streams the undecoded
// response ({"docs":[...],"bookmark":...}). The caller must close the reader.
func (c *Client) FindStream(ctx context.Context, selector filter.Selector, fields []filter.Field) (io.ReadCloser, error) {
	payload, err := findBody(FindQuery{Selector: selector, Fields: fields})
	if err != nil {
		return nil, err
	}

	body, _, err := c.stream(ctx, request{
		op:     "find_stream",
		method: http.MethodPost,
		path:   c.dbPath("_find"),
		body:   payload,
	})
	if err != nil {
		return nil, mapError(err, "", "")
	}
	return body, nil
}

// FindPage runs one _find request.
func (c *Client) FindPage(ctx context.Context, q FindQuery) (FindResult, error) {
	payload, err := findBody(q)
	if err != nil {
		return FindResult{}, err
	}

	resp, err := c.do(ctx, request{
		op:     "find",
		method: http.MethodPost,
		path:   c.dbPath("_find"),
		body:   payload,
	})
	if err != nil {
		return FindResult{}, mapError(err, "", "")
	}

	var res struct {
		Docs     []document.Document `json:"docs"`
		Bookmark string              `json:"bookmark"`
		Warning  string              `json:"warning"`
	}
	if err := decode("find", resp, &res); err != nil {
		return FindResult{}, err
	}
	if res.Warning != "" {
		c.log.WithContext(ctx).Warnw("couchdb find warning", "warning", res.Warning)
	}
	return FindResult{Docs: res.Docs, Bookmark: res.Bookmark, Warning: res.Warning}, nil
}

func findBody(q FindQuery) ([]byte, error) {
	selector := q.Selector
	if selector == nil {
		// Matches every document.
		selector = filter.Selector{document.FieldID: filter.Selector{"$gt": nil}}
	}

	body := map[string]any{"selector": selector}
	if len(q.Fields) > 0 {
		body["fields"] = projection(q.Fields)
	}
	if q.Limit > 0 {
		body["limit"] = q.Limit
	}
	if q.Bookmark != "" {
		body["bookmark"] = q.Bookmark
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperror.NewInvalidRequest("selector is not serializable").WithCause(err)
	}
	return payload, nil
}

// projection renders fields plus _id and _rev without duplicates.
func projection(fields []filter.Field) []string {
	names := filter.DottedAll(fields)
	seen := make(map[string]bool, len(names)+2)
	out := make([]string, 0, len(names)+2)
	for _, n := range append(names, document.FieldID, document.FieldRevision) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// encodeBody validates that body is a JSON object, drops store-reserved
// identity fields and sets _rev when rev is given.
func encodeBody(body any, rev string) ([]byte, error) {
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, apperror.NewInvalidRequest("document body is not serializable").WithCause(err)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, apperror.NewInvalidRequest("document body must be a JSON object")
	}
	delete(obj, document.FieldID)
	delete(obj, document.FieldRevision)
	delete(obj, document.FieldDeleted)
	if rev != "" {
		encoded, _ := json.Marshal(rev)
		obj[document.FieldRevision] = encoded
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("encode document: %w", err))
	}
	return out, nil
}
