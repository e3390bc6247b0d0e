// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// maxThreadPayloadSize caps how much of a thread payload is read (8 MB).
const maxThreadPayloadSize = 8 << 20

// DiscourseFetcher reads thread details from a Discourse-style JSON endpoint,
// GET {BaseURL}/t/{id}.json.
type DiscourseFetcher struct {
	BaseURL string
	// APIKey and APIUsername authenticate the request. When APIKey is set and
	// the viewer has a username, the request is made as the viewer so that
	// details.current_user_posted describes them. Any other request reports
	// on someone else, so only the participant list is used.
	APIKey      string
	APIUsername string
	Client      *http.Client
}

var _ ThreadFetcher = (*DiscourseFetcher)(nil)

// NewDiscourseFetcher creates a fetcher with its own HTTP client.
func NewDiscourseFetcher(baseURL, apiKey, apiUsername string, timeout time.Duration) *DiscourseFetcher {
	return &DiscourseFetcher{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		APIUsername: apiUsername,
		Client:      &http.Client{Timeout: timeout},
	}
}

// FetchThread implements ThreadFetcher.
func (f *DiscourseFetcher) FetchThread(ctx context.Context, threadID string, viewer *Viewer) (*ThreadDetails, error) {
	endpoint := f.BaseURL + "/t/" + url.PathEscape(threadID) + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build thread request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	asViewer := f.APIKey != "" && viewer != nil && viewer.Username != ""
	if f.APIKey != "" {
		req.Header.Set("Api-Key", f.APIKey)
		username := f.APIUsername
		if viewer != nil && viewer.Username != "" {
			username = viewer.Username
		}
		if username != "" {
			req.Header.Set("Api-Username", username)
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, ThreadID: threadID}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxThreadPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read thread %s: %w", threadID, err)
	}
	details, err := parseDiscourseThread(body)
	if err != nil {
		return nil, err
	}
	if !asViewer {
		details.CurrentUserPosted = nil
	}
	return details, nil
}

// parseDiscourseThread reads the participation fields of a thread payload.
func parseDiscourseThread(body []byte) (*ThreadDetails, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedThread
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedThread)
	}
	details := &ThreadDetails{}
	if posted := root.Get("details.current_user_posted"); posted.Type == gjson.True || posted.Type == gjson.False {
		val := posted.Bool()
		details.CurrentUserPosted = &val
	}
	for _, id := range root.Get("details.participants.#.id").Array() {
		details.Participants = append(details.Participants, id.String())
	}
	return details, nil
}
