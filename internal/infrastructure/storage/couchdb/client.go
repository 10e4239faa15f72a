package couchdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"csafcms/internal/core/apperror"
	"csafcms/internal/domain/document"
	"csafcms/internal/infrastructure/metrics"
	"csafcms/pkg/logger"
)

var tracer = otel.Tracer("csafcms/couchdb")

// Compile-time check that Client implements document.Store.
var _ document.Store = (*Client)(nil)

// Client talks to one CouchDB database over its HTTP API.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New creates a client. No request is made until the first operation.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FindPageSize <= 0 {
		cfg.FindPageSize = DefaultConfig().FindPageSize
	}
	if log == nil {
		log = logger.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 16

	return &Client{
		cfg:     cfg,
		baseURL: cfg.BaseURL(),
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:     log.WithComponent("couchdb"),
	}, nil
}

// DBName returns the configured database.
func (c *Client) DBName() string {
	return c.cfg.DBName
}

// request describes one HTTP round trip.
type request struct {
	op     string // span and log name
	method string
	path   []string // unescaped path segments
	query  url.Values
	body   []byte
	docID  string
}

// response is a successful (status < 400) or decoded error response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes req and buffers the response. Transport failures are returned
// as STORE_UNAVAILABLE, HTTP error statuses as *statusError for the caller to map.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	httpResp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	payload, err := readBody(httpResp)
	if err != nil {
		return nil, apperror.NewStoreUnavailable(fmt.Errorf("%s: read response: %w", req.op, err))
	}
	return &response{status: httpResp.StatusCode, header: httpResp.Header, body: payload}, nil
}

// stream executes req like do but leaves the decoded body of a successful
// response unread. The caller must close it.
func (c *Client) stream(ctx context.Context, req request) (io.ReadCloser, http.Header, error) {
	httpResp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	body, err := bodyReader(httpResp)
	if err != nil {
		httpResp.Body.Close()
		return nil, nil, apperror.NewStoreUnavailable(fmt.Errorf("%s: read response: %w", req.op, err))
	}
	return body, httpResp.Header, nil
}

// exchange sends req inside a client span and records store metrics. A
// response with status >= 400 is consumed and returned as *statusError;
// otherwise the caller owns the open body.
func (c *Client) exchange(ctx context.Context, req request) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "couchdb."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "couchdb"),
			attribute.String("db.name", c.cfg.DBName),
			attribute.String("http.request.method", req.method),
		))
	defer span.End()
	if req.docID != "" {
		span.SetAttributes(attribute.String("couchdb.doc_id", req.docID))
	}
	log := c.log.WithContext(ctx).WithDocument(req.docID, "")

	start := time.Now()
	httpResp, err := c.send(ctx, req)
	status := 0
	if httpResp != nil {
		status = httpResp.StatusCode
	}
	metrics.StoreRequestsTotal.WithLabelValues(req.op, metrics.StatusLabel(status)).Inc()
	metrics.StoreRequestDuration.WithLabelValues(req.op).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warnw("couchdb request failed", "op", req.op, "method", req.method, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	log.Debugw("couchdb request",
		"op", req.op,
		"method", req.method,
		"status", status,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if status >= http.StatusBadRequest {
		defer httpResp.Body.Close()
		payload, _ := readBody(httpResp)
		serr := newStatusError(&response{status: status, header: httpResp.Header, body: payload})
		span.SetStatus(codes.Error, serr.Error())
		return nil, serr
	}
	return httpResp, nil
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	target := c.endpoint(req.path, req.query)

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("build %s request: %w", req.op, err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.User != "" {
		httpReq.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperror.NewStoreUnavailable(fmt.Errorf("%s: %w", req.op, err))
	}
	return httpResp, nil
}

// endpoint builds the URL for path segments below the server root.
func (c *Client) endpoint(path []string, query url.Values) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, seg := range path {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	if len(path) == 0 {
		b.WriteByte('/')
	}
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// dbPath returns path segments below the configured database.
func (c *Client) dbPath(segments ...string) []string {
	return append([]string{c.cfg.DBName}, segments...)
}

// bodyReader returns resp's body, decompressed if the store gzipped it.
// Closing it closes the underlying connection body.
func bodyReader(resp *http.Response) (io.ReadCloser, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, nil
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return gzipBody{Reader: zr, body: resp.Body}, nil
}

type gzipBody struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g gzipBody) Close() error {
	_ = g.Reader.Close()
	return g.body.Close()
}

func readBody(resp *http.Response) ([]byte, error) {
	rc, err := bodyReader(resp)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(rc)
}

// decode unmarshals a successful response body.
func decode(op string, resp *response, out any) error {
	if err := json.Unmarshal(resp.body, out); err != nil {
		return apperror.NewStoreUnavailable(fmt.Errorf("%s: decode response: %w", op, err))
	}
	return nil
}
