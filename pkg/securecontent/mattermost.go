// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mattermost/mattermost/server/public/model"
)

// MattermostFetcher reads thread participation from a Mattermost server. A
// thread is identified by its root post id; participants are the distinct
// authors of the posts in the thread.
type MattermostFetcher struct {
	client *model.Client4
}

var _ ThreadFetcher = (*MattermostFetcher)(nil)

// NewMattermostFetcher creates a fetcher authenticated with a bot or user
// access token.
func NewMattermostFetcher(serverURL, token string) *MattermostFetcher {
	client := model.NewAPIv4Client(serverURL)
	client.SetToken(token)
	return &MattermostFetcher{client: client}
}

// FetchThread implements ThreadFetcher.
func (f *MattermostFetcher) FetchThread(ctx context.Context, threadID string, _ *Viewer) (*ThreadDetails, error) {
	postList, resp, err := f.client.GetPostThread(ctx, threadID, "", false)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("thread %s: %w", threadID, ErrThreadNotFound)
		}
		return nil, fmt.Errorf("failed to get post thread %s: %w", threadID, err)
	}
	if postList == nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrMalformedThread)
	}

	details := &ThreadDetails{}
	seen := make(map[string]struct{})
	for _, postID := range postList.Order {
		post, ok := postList.Posts[postID]
		if !ok || post == nil || post.UserId == "" || post.DeleteAt != 0 {
			continue
		}
		if _, dup := seen[post.UserId]; dup {
			continue
		}
		seen[post.UserId] = struct{}{}
		details.Participants = append(details.Participants, post.UserId)
	}
	return details, nil
}

// ViewerFromUser builds a viewer from a Mattermost user. Mattermost does not
// report a site-wide post count, so it is left unknown.
func ViewerFromUser(user *model.User) *Viewer {
	if user == nil {
		return nil
	}
	return &Viewer{
		ID:        user.Id,
		Username:  user.Username,
		Admin:     user.IsSystemAdmin(),
		Moderator: user.IsInRole(model.SystemManagerRoleId),
		PostCount: UnknownPostCount,
	}
}

// CurrentViewer resolves the viewer owning token on the Mattermost server.
func CurrentViewer(ctx context.Context, serverURL, token string) (*Viewer, error) {
	client := model.NewAPIv4Client(serverURL)
	client.SetToken(token)
	me, _, err := client.GetMe(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to verify Mattermost session: %w", err)
	}
	return ViewerFromUser(me), nil
}
