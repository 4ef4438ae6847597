package portaltest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Request is one call recorded by FakeBackend.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          string
	Form          map[string][]string
	Files         map[string]string
}

// Response is a canned backend answer.
type Response struct {
	Status int
	Body   string
}

// FakeBackend serves canned JSON for "METHOD /path" routes and records every
// request. Unknown routes answer 404 with a FastAPI style detail.
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	requests []Request
}

// NewFakeBackend starts a fake backend closed with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{routes: make(map[string]Response)}
	f.Server = httptest.NewServer(f)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to hand to backend.NewClient.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// On registers a response for method and path (without query).
func (f *FakeBackend) On(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = Response{Status: status, Body: body}
}

// OnQuery registers a response that only matches when the raw query equals
// query. It wins over a plain On route for the same path.
func (f *FakeBackend) OnQuery(method, path, query string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path+"?"+query] = Response{Status: status, Body: body}
}

// Requests returns a copy of every recorded request.
func (f *FakeBackend) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Find returns recorded requests matching method and path.
func (f *FakeBackend) Find(method, path string) []Request {
	var out []Request
	for _, req := range f.Requests() {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (f *FakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
	}
	if strings.HasPrefix(rec.ContentType, "multipart/") && r.ParseMultipartForm(32<<20) == nil {
		rec.Form = r.MultipartForm.Value
		rec.Files = make(map[string]string)
		for field, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				rec.Files[field] = headers[0].Filename
			}
		}
	} else {
		data, _ := io.ReadAll(r.Body)
		rec.Body = string(data)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	resp, ok := f.routes[r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery]
	if !ok {
		resp, ok = f.routes[r.Method+" "+r.URL.Path]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
		return
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}
