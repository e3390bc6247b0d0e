// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method  string
	Path    string
	Headers http.Header
}

// fakeForum is a test helper that wraps an httptest.Server simulating both a
// Discourse-style forum (/t/{id}.json) and the Mattermost thread API. It
// records calls and serves canned responses.
type fakeForum struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Topics maps thread id to the raw JSON served at /t/{id}.json.
	Topics map[string]string
	// Threads maps root post id to the Mattermost post list of the thread.
	Threads map[string]*model.PostList
	// Users maps bearer token to the Mattermost user returned by /users/me.
	Users map[string]*model.User
	// FailEndpoints causes paths containing a key to return 500.
	FailEndpoints map[string]bool
}

func newFakeForum() *fakeForum {
	f := &fakeForum{
		Topics:        make(map[string]string),
		Threads:       make(map[string]*model.PostList),
		Users:         make(map[string]*model.User),
		FailEndpoints: make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeForum) Close() {
	f.Server.Close()
}

func (f *fakeForum) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: r.Method, Path: r.URL.Path, Headers: r.Header.Clone()})
}

func (f *fakeForum) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func (f *fakeForum) CallCount() int {
	return len(f.Calls())
}

func (f *fakeForum) SetFail(prefix string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailEndpoints[prefix] = fail
}

func (f *fakeForum) failing(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix, fail := range f.FailEndpoints {
		if fail && strings.Contains(path, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeForum) handler(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	path := r.URL.Path

	if f.failing(path) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "fake error"})
		return
	}

	switch {
	// GET /t/{id}.json
	case r.Method == "GET" && strings.HasPrefix(path, "/t/") && strings.HasSuffix(path, ".json"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/t/"), ".json")
		if body, ok := f.Topics[id]; ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{"not found"}})

	// GET /api/v4/users/me
	case r.Method == "GET" && path == "/api/v4/users/me":
		auth := r.Header.Get("Authorization")
		for tok, u := range f.Users {
			// model.Client4 uses "BEARER" (uppercase), standard HTTP uses "Bearer".
			if auth == "BEARER "+tok || auth == "Bearer "+tok {
				_ = json.NewEncoder(w).Encode(u)
				return
			}
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})

	// GET /api/v4/posts/{post_id}/thread
	case r.Method == "GET" && strings.HasPrefix(path, "/api/v4/posts/") && strings.HasSuffix(path, "/thread"):
		parts := strings.Split(path, "/")
		// /api/v4/posts/{id}/thread
		if len(parts) >= 6 {
			if pl, ok := f.Threads[parts[4]]; ok {
				_ = json.NewEncoder(w).Encode(pl)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found", "status_code": "404"})

	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found: " + path})
	}
}

// countingFetcher is an in-memory ThreadFetcher that counts calls.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	details map[string]*ThreadDetails
	err     error
	// block, when set, is waited on before answering.
	block chan struct{}
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{details: make(map[string]*ThreadDetails)}
}

func (c *countingFetcher) FetchThread(ctx context.Context, threadID string, _ *Viewer) (*ThreadDetails, error) {
	c.mu.Lock()
	c.calls++
	block := c.block
	err := c.err
	d, ok := c.details[threadID]
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrThreadNotFound
	}
	return d, nil
}

func (c *countingFetcher) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingFetcher) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

var errFakeNetwork = errors.New("fake network failure")

func boolPtr(b bool) *bool {
	return &b
}

// testCatalog loads the embedded catalog or fails the test.
func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog(nil)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return c
}

// testStrings returns the default locale's strings.
func testStrings(t *testing.T) *Strings {
	t.Helper()
	return testCatalog(t).For(DefaultLocale)
}

// newTestDecorator creates a decorator over fetcher with a fresh cache and
// unregistered metrics.
func newTestDecorator(t *testing.T, fetcher ThreadFetcher) *Decorator {
	t.Helper()
	log := zerolog.Nop()
	metrics := NewMetrics(nil)
	oracle := NewOracle(NewReplyCache(), fetcher, metrics, log)
	return NewDecorator(oracle, testCatalog(t), metrics, log)
}

// mustPostPage builds a page holding one post or fails the test.
func mustPostPage(t *testing.T, postHTML string, threadPage bool) (*Page, *html.Node) {
	t.Helper()
	page, post, err := NewPostPage(postHTML, threadPage)
	if err != nil {
		t.Fatalf("NewPostPage: %v", err)
	}
	return page, post
}

// mustInner serializes a node's children or fails the test.
func mustInner(t *testing.T, n *html.Node) string {
	t.Helper()
	s, err := InnerHTML(n)
	if err != nil {
		t.Fatalf("InnerHTML: %v", err)
	}
	return s
}
