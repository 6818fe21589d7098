// Package testutil provides testing utilities for pagesched: a
// configurable mock HTTP server speaking the "cursor query param in,
// next_cursor field out" convention that cmd/pagesched's fetchPage assumes
// of an upstream paginated JSON API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Response defines the behavior for a single mock endpoint response.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Page is one page of a paginated collection: the items in the page and
// the cursor a client should pass to fetch the next one. An empty
// NextCursor signals the last page.
type Page struct {
	Items      []any
	NextCursor string
}

// MockServer is a configurable mock paginated JSON API for testing.
type MockServer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockServer starts a mock server. Every request is tracked and
// dispatched to a per-path handler registered via SetHandler, SetResponse,
// or SetPages; unregistered paths fall through to a generic healthy
// default response.
func NewMockServer() *MockServer {
	mock := &MockServer{handlers: make(map[string]func(w http.ResponseWriter, r *http.Request))}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string { return m.server.URL }

// Close shuts down the mock server.
func (m *MockServer) Close() { m.server.Close() }

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
}

// SetHandler registers a custom handler for an exact path.
func (m *MockServer) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse registers a fixed, non-paginated response for a path.
func (m *MockServer) SetResponse(path string, resp Response) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPages registers a cursor-driven paginated response for path. The
// "cursor" query parameter selects the page: empty/absent means the first
// page, and each page's NextCursor is echoed back on the following
// request. Requesting an unknown cursor returns the first page, so a
// caller can't wedge pagination by reusing a stale cursor value.
func (m *MockServer) SetPages(path string, pages []Page) {
	byCursor := make(map[string]Page, len(pages))
	byCursor[""] = pages[0]
	for i, p := range pages {
		if i > 0 {
			byCursor[pages[i-1].NextCursor] = p
		}
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		page, ok := byCursor[cursor]
		if !ok {
			page = pages[0]
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)

		body := struct {
			Items      []any  `json:"items"`
			NextCursor string `json:"next_cursor,omitempty"`
		}{Items: page.Items, NextCursor: page.NextCursor}
		json.NewEncoder(w).Encode(body)
	})
}

// GetRequestCount returns the number of requests received so far.
func (m *MockServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns how many of those requests carried a
// conditional-request header.
func (m *MockServer) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

func (m *MockServer) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-RateLimit-Remaining", "100")
	w.Header().Set("X-RateLimit-Reset", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("If-None-Match") != "" {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"items":[],"next_cursor":""}`))
}

// NewHealthyResponse builds a standard 200 OK Response carrying a healthy
// rate-limit budget.
func NewHealthyResponse(body string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"ETag":                  `"test-etag-123"`,
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse builds a 304 Not Modified Response.
func NewNotModifiedResponse() Response {
	return Response{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewRateLimitResponse builds a 429 Too Many Requests Response with a
// near-exhausted error budget.
func NewRateLimitResponse() Response {
	return Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "3",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse builds a 500 Internal Server Error Response.
func NewServerErrorResponse() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"internal server error"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "95",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler builds a handler that serves 304 for requests
// bearing a matching If-None-Match, and the full body otherwise.
func NewConditionalHandler(etag, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	}
}
