package couchdb

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"csafcms/pkg/logger"
)

const (
	testUser     = "testUser"
	testPassword = "testPassword"
	testDB       = "test-db"
	testVersion  = "3.2.2"
)

var revPattern = regexp.MustCompile(`^[0-9]+-[0-9a-f]+$`)

type fakeDoc struct {
	rev     string
	body    map[string]any
	deleted bool
}

// fakeCouch implements the subset of the CouchDB HTTP API the client uses.
type fakeCouch struct {
	mu       sync.Mutex
	dbs      map[string]map[string]*fakeDoc
	requests []string
	gzip     bool
	warning  string
	// failNext answers the next request with this status.
	failNext int
	// stall delays every response, or until the client gives up.
	stall time.Duration
}

func newFakeCouch() *fakeCouch {
	return &fakeCouch{dbs: map[string]map[string]*fakeDoc{testDB: {}}}
}

func newTestClient(t *testing.T) (*Client, *fakeCouch) {
	t.Helper()
	fake := newFakeCouch()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.DBName = testDB
	cfg.User = testUser
	cfg.Password = testPassword
	cfg.FindPageSize = 2

	client, err := New(cfg, logger.Wrap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return client, fake
}

func (f *fakeCouch) failWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = status
}

func (f *fakeCouch) enableGzip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gzip = true
}

func (f *fakeCouch) setWarning(w string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warning = w
}

func (f *fakeCouch) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeCouch) stallFor(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall = d
}

func (f *fakeCouch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	stall := f.stall
	f.mu.Unlock()
	if stall > 0 {
		select {
		case <-time.After(stall):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.EscapedPath())

	if user, pass, ok := r.BasicAuth(); !ok || user != testUser || pass != testPassword {
		f.reply(w, r, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "reason": "Name or password is incorrect."})
		return
	}
	if f.failNext != 0 {
		status := f.failNext
		f.failNext = 0
		f.reply(w, r, status, map[string]any{"error": "unknown_error", "reason": "injected"})
		return
	}

	var segs []string
	for _, s := range strings.Split(strings.Trim(r.URL.EscapedPath(), "/"), "/") {
		if s == "" {
			continue
		}
		dec, _ := url.PathUnescape(s)
		segs = append(segs, dec)
	}

	switch {
	case len(segs) == 0 && r.Method == http.MethodGet:
		f.reply(w, r, http.StatusOK, map[string]any{"couchdb": "Welcome", "version": testVersion})
	case len(segs) == 1 && segs[0] == "_up":
		f.reply(w, r, http.StatusOK, map[string]any{"status": "ok"})
	case len(segs) == 1 && r.Method == http.MethodPut:
		if _, ok := f.dbs[segs[0]]; ok {
			f.reply(w, r, http.StatusPreconditionFailed, map[string]any{"error": "file_exists", "reason": "The database could not be created, the file already exists."})
			return
		}
		f.dbs[segs[0]] = map[string]*fakeDoc{}
		f.reply(w, r, http.StatusCreated, map[string]any{"ok": true})
	case len(segs) == 1 && r.Method == http.MethodGet:
		db, ok := f.dbs[segs[0]]
		if !ok {
			f.reply(w, r, http.StatusNotFound, map[string]any{"error": "not_found", "reason": "Database does not exist."})
			return
		}
		count := 0
		for _, d := range db {
			if !d.deleted {
				count++
			}
		}
		f.reply(w, r, http.StatusOK, map[string]any{"db_name": segs[0], "doc_count": count})
	case len(segs) == 2:
		db, ok := f.dbs[segs[0]]
		if !ok {
			f.reply(w, r, http.StatusNotFound, map[string]any{"error": "not_found", "reason": "Database does not exist."})
			return
		}
		switch segs[1] {
		case "_bulk_docs":
			f.bulkDocs(w, r, db)
		case "_find":
			f.find(w, r, db)
		default:
			f.document(w, r, db, segs[1])
		}
	default:
		f.reply(w, r, http.StatusBadRequest, map[string]any{"error": "bad_request", "reason": "unsupported"})
	}
}

func (f *fakeCouch) reply(w http.ResponseWriter, r *http.Request, status int, body any) {
	payload, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	if f.gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(status)
		zw := gzip.NewWriter(w)
		_, _ = zw.Write(payload)
		_ = zw.Close()
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func nextRev(prev string, body map[string]any) string {
	gen := 0
	if prev != "" {
		gen, _ = strconv.Atoi(strings.SplitN(prev, "-", 2)[0])
	}
	gen++
	raw, _ := json.Marshal(body)
	sum := md5.Sum(append(raw, []byte(strconv.Itoa(gen))...))
	return fmt.Sprintf("%d-%s", gen, hex.EncodeToString(sum[:]))
}

// write applies one write and returns the new revision or a CouchDB error.
func (f *fakeCouch) write(db map[string]*fakeDoc, docID, rev string, body map[string]any, deleted bool) (string, int, string, string) {
	if rev != "" && !revPattern.MatchString(rev) {
		return "", http.StatusBadRequest, "bad_request", "Invalid rev format"
	}
	cur, exists := db[docID]
	live := exists && !cur.deleted

	switch {
	case deleted && !live:
		return "", http.StatusNotFound, "not_found", "deleted"
	case !live && rev != "":
		return "", http.StatusConflict, "conflict", "Document update conflict."
	case live && rev != cur.rev:
		return "", http.StatusConflict, "conflict", "Document update conflict."
	}

	prev := ""
	if exists {
		prev = cur.rev
	}
	newRev := nextRev(prev, body)
	db[docID] = &fakeDoc{rev: newRev, body: body, deleted: deleted}
	return newRev, 0, "", ""
}

func (f *fakeCouch) document(w http.ResponseWriter, r *http.Request, db map[string]*fakeDoc, docID string) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		d, ok := db[docID]
		if !ok || d.deleted {
			f.reply(w, r, http.StatusNotFound, map[string]any{"error": "not_found", "reason": "missing"})
			return
		}
		out := map[string]any{"_id": docID, "_rev": d.rev}
		for k, v := range d.body {
			out[k] = v
		}
		w.Header().Set("ETag", strconv.Quote(d.rev))
		f.reply(w, r, http.StatusOK, out)
	case http.MethodPut:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
			f.reply(w, r, http.StatusBadRequest, map[string]any{"error": "bad_request", "reason": "Document must be a JSON object"})
			return
		}
		rev, _ := body["_rev"].(string)
		delete(body, "_rev")
		newRev, status, kind, reason := f.write(db, docID, rev, body, false)
		if status != 0 {
			f.reply(w, r, status, map[string]any{"error": kind, "reason": reason})
			return
		}
		f.reply(w, r, http.StatusCreated, map[string]any{"ok": true, "id": docID, "rev": newRev})
	case http.MethodDelete:
		rev := r.URL.Query().Get("rev")
		if rev == "" {
			rev = "missing"
		}
		newRev, status, kind, reason := f.write(db, docID, rev, nil, true)
		if status != 0 {
			f.reply(w, r, status, map[string]any{"error": kind, "reason": reason})
			return
		}
		f.reply(w, r, http.StatusOK, map[string]any{"ok": true, "id": docID, "rev": newRev})
	default:
		f.reply(w, r, http.StatusMethodNotAllowed, map[string]any{"error": "method_not_allowed", "reason": r.Method})
	}
}

func (f *fakeCouch) bulkDocs(w http.ResponseWriter, r *http.Request, db map[string]*fakeDoc) {
	var req struct {
		Docs []map[string]any `json:"docs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.reply(w, r, http.StatusBadRequest, map[string]any{"error": "bad_request", "reason": err.Error()})
		return
	}

	results := make([]map[string]any, 0, len(req.Docs))
	for _, d := range req.Docs {
		docID, _ := d["_id"].(string)
		rev, _ := d["_rev"].(string)
		deleted, _ := d["_deleted"].(bool)
		newRev, status, kind, reason := f.write(db, docID, rev, nil, deleted)
		if status != 0 {
			results = append(results, map[string]any{"id": docID, "error": kind, "reason": reason})
			continue
		}
		results = append(results, map[string]any{"ok": true, "id": docID, "rev": newRev})
	}
	f.reply(w, r, http.StatusCreated, results)
}

func (f *fakeCouch) find(w http.ResponseWriter, r *http.Request, db map[string]*fakeDoc) {
	var req struct {
		Selector map[string]any `json:"selector"`
		Fields   []string       `json:"fields"`
		Limit    int            `json:"limit"`
		Bookmark string         `json:"bookmark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Selector == nil {
		f.reply(w, r, http.StatusBadRequest, map[string]any{"error": "bad_request", "reason": "invalid selector"})
		return
	}

	ids := make([]string, 0, len(db))
	for docID, d := range db {
		if !d.deleted {
			ids = append(ids, docID)
		}
	}
	sort.Strings(ids)

	var matched []map[string]any
	for _, docID := range ids {
		d := db[docID]
		full := map[string]any{"_id": docID, "_rev": d.rev}
		for k, v := range d.body {
			full[k] = v
		}
		if matchSelector(req.Selector, full) {
			matched = append(matched, full)
		}
	}

	start, _ := strconv.Atoi(req.Bookmark)
	limit := req.Limit
	if limit == 0 {
		limit = 25
	}
	end := min(start+limit, len(matched))
	start = min(start, end)

	docs := make([]map[string]any, 0, end-start)
	for _, doc := range matched[start:end] {
		docs = append(docs, project(doc, req.Fields))
	}

	body := map[string]any{"docs": docs, "bookmark": strconv.Itoa(end)}
	if f.warning != "" {
		body["warning"] = f.warning
	}
	f.reply(w, r, http.StatusOK, body)
}

func project(doc map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return doc
	}
	out := map[string]any{}
	for _, field := range fields {
		v, ok := lookup(doc, field)
		if !ok {
			continue
		}
		parts := strings.Split(field, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = v
	}
	return out
}

func lookup(v any, dotted string) (any, bool) {
	for _, p := range strings.Split(dotted, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// matchSelector evaluates the selector operators the compiler emits.
func matchSelector(sel map[string]any, v any) bool {
	for key, arg := range sel {
		switch {
		case key == "$and":
			for _, sub := range arg.([]any) {
				if !matchSelector(sub.(map[string]any), v) {
					return false
				}
			}
		case strings.HasPrefix(key, "$"):
			if !matchOperator(key, arg, v, true) {
				return false
			}
		default:
			fv, present := lookup(v, key)
			if cond, ok := arg.(map[string]any); ok {
				if !matchCondition(cond, fv, present) {
					return false
				}
			} else if !present || !equalValues(fv, arg) {
				return false
			}
		}
	}
	return true
}

func matchCondition(cond map[string]any, v any, present bool) bool {
	return present && matchSelector(cond, v)
}

func matchOperator(op string, arg, v any, present bool) bool {
	if !present {
		return false
	}
	switch op {
	case "$eq":
		return equalValues(v, arg)
	case "$ne":
		return !equalValues(v, arg)
	case "$gt", "$gte", "$lt", "$lte":
		if arg == nil {
			return op == "$gt" || op == "$gte"
		}
		c, ok := compareValues(v, arg)
		if !ok {
			return false
		}
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		default:
			return c <= 0
		}
	case "$regex":
		s, ok := v.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(arg.(string))
		return err == nil && re.MatchString(s)
	case "$elemMatch":
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		inner := arg.(map[string]any)
		for _, el := range arr {
			if matchCondition(inner, el, true) {
				return true
			}
		}
		return false
	}
	return false
}

func equalValues(a, b any) bool {
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return string(ra) == string(rb)
}

func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}
