// Package webtest provides an in-memory http.RoundTripper that serves canned
// responses by URL, so fetch-heavy packages can be tested without sockets.
package webtest

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// Response is a canned reply.
type Response struct {
	Status int
	Body   string
	Header http.Header
}

// FakeWeb answers requests from a URL map. Unknown URLs get 404.
type FakeWeb struct {
	mu        sync.Mutex
	responses map[string]Response
	requests  []*http.Request
	counts    map[string]int
}

// New returns an empty FakeWeb.
func New() *FakeWeb {
	return &FakeWeb{
		responses: make(map[string]Response),
		counts:    make(map[string]int),
	}
}

// Set registers a 200 response with the given body.
func (w *FakeWeb) Set(url, body string) *FakeWeb {
	return w.SetResponse(url, Response{Status: http.StatusOK, Body: body})
}

// SetResponse registers an arbitrary response.
func (w *FakeWeb) SetResponse(url string, resp Response) *FakeWeb {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.responses[url] = resp
	return w
}

// Client returns an http.Client backed by the fake.
func (w *FakeWeb) Client() *http.Client {
	return &http.Client{Transport: w}
}

// RoundTrip implements http.RoundTripper.
func (w *FakeWeb) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	w.mu.Lock()
	w.requests = append(w.requests, req)
	w.counts[url]++
	resp, ok := w.responses[url]
	w.mu.Unlock()

	if !ok {
		resp = Response{Status: http.StatusNotFound, Body: "404: Not Found"}
	}
	header := resp.Header
	if header == nil {
		header = make(http.Header)
	}

	return &http.Response{
		StatusCode: resp.Status,
		Status:     http.StatusText(resp.Status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp.Body)),
		Request:    req,
	}, nil
}

// Count returns how many times url was requested.
func (w *FakeWeb) Count(url string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[url]
}

// Total returns the number of requests served.
func (w *FakeWeb) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

// CountPrefix returns how many requests hit a URL starting with prefix.
func (w *FakeWeb) CountPrefix(prefix string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for url, c := range w.counts {
		if strings.HasPrefix(url, prefix) {
			n += c
		}
	}
	return n
}

// Requests returns a copy of the served requests in arrival order.
func (w *FakeWeb) Requests() []*http.Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*http.Request, len(w.requests))
	copy(out, w.requests)
	return out
}
