// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ThreadDetails is the part of a thread payload the oracle cares about.
type ThreadDetails struct {
	// CurrentUserPosted is the server's own answer for the requesting viewer,
	// when the payload carries one.
	CurrentUserPosted *bool
	// Participants lists the ids of users who posted in the thread.
	Participants []string
}

// HasPosted reports whether the viewer posted in the thread. The explicit
// flag wins over the participant list.
func (d *ThreadDetails) HasPosted(viewerID string) bool {
	if d == nil {
		return false
	}
	if d.CurrentUserPosted != nil {
		return *d.CurrentUserPosted
	}
	return slices.Contains(d.Participants, viewerID)
}

// ThreadFetcher loads the detail payload of a thread on behalf of a viewer.
type ThreadFetcher interface {
	FetchThread(ctx context.Context, threadID string, viewer *Viewer) (*ThreadDetails, error)
}

type replyKey struct {
	viewerID string
	threadID string
}

// ReplyCache memoizes participation facts per (viewer, thread) for the
// lifetime of the process. A true fact is never downgraded. Safe for
// concurrent use.
type ReplyCache struct {
	mu      sync.RWMutex
	entries map[replyKey]bool
}

// NewReplyCache creates an empty cache.
func NewReplyCache() *ReplyCache {
	return &ReplyCache{entries: make(map[replyKey]bool)}
}

// Get returns the cached fact and whether one exists.
func (c *ReplyCache) Get(viewerID, threadID string) (replied, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	replied, ok = c.entries[replyKey{viewerID, threadID}]
	return replied, ok
}

// Set records a fact. Setting false over a cached true is ignored.
func (c *ReplyCache) Set(viewerID, threadID string, replied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := replyKey{viewerID, threadID}
	if c.entries[key] {
		return
	}
	c.entries[key] = replied
}

// MarkReplied records that the viewer has just posted in the thread.
func (c *ReplyCache) MarkReplied(viewerID, threadID string) {
	c.Set(viewerID, threadID, true)
}

// Len returns the number of cached facts.
func (c *ReplyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolution tiers, in the order they are tried.
const (
	TierCache       = "cache"
	TierNeverPosted = "never_posted"
	TierPage        = "page"
	TierRemote      = "remote"
	TierFailed      = "remote_failed"
	TierSkipped     = "skipped"
)

// Oracle answers whether a viewer has posted in a thread.
type Oracle struct {
	cache   *ReplyCache
	fetcher ThreadFetcher
	metrics *Metrics
	log     zerolog.Logger

	// FetchTimeout bounds a remote check. The check outlives the pass that
	// started it, since other passes may be waiting on the same result.
	FetchTimeout time.Duration

	inflight singleflight.Group
}

// DefaultFetchTimeout bounds a remote check when the oracle has no
// FetchTimeout of its own.
const DefaultFetchTimeout = 10 * time.Second

// NewOracle creates an oracle over a shared cache. fetcher may be nil, in
// which case the remote tier always fails closed.
func NewOracle(cache *ReplyCache, fetcher ThreadFetcher, metrics *Metrics, log zerolog.Logger) *Oracle {
	if cache == nil {
		cache = NewReplyCache()
	}
	return &Oracle{
		cache:   cache,
		fetcher: fetcher,
		metrics: metrics,
		log:     log.With().Str("component", "participation").Logger(),

		FetchTimeout: DefaultFetchTimeout,
	}
}

// Cache returns the oracle's cache.
func (o *Oracle) Cache() *ReplyCache {
	return o.cache
}

// HasReplied resolves the participation fact for viewer in threadID. The
// resolution order is: cache, a viewer with no posts at all, a post by the
// viewer already on the page, then one remote fetch. A failed fetch resolves
// to false and is not cached.
func (o *Oracle) HasReplied(ctx context.Context, viewer *Viewer, threadID string, page *Page) bool {
	replied, tier := o.resolve(ctx, viewer, threadID, page)
	o.metrics.observeParticipation(tier)
	return replied
}

func (o *Oracle) resolve(ctx context.Context, viewer *Viewer, threadID string, page *Page) (bool, string) {
	if viewer == nil || threadID == "" {
		return false, TierSkipped
	}
	if replied, ok := o.cache.Get(viewer.ID, threadID); ok {
		return replied, TierCache
	}
	if viewer.NeverPosted() {
		o.cache.Set(viewer.ID, threadID, false)
		return false, TierNeverPosted
	}
	if page != nil && page.HasPostBy(viewer.ID) {
		o.cache.Set(viewer.ID, threadID, true)
		return true, TierPage
	}
	replied, err := o.fetch(ctx, viewer, threadID)
	if err != nil {
		o.log.Warn().Err(err).
			Str("thread_id", threadID).
			Str("viewer_id", viewer.ID).
			Msg("Failed to confirm participation, keeping content locked")
		return false, TierFailed
	}
	return replied, TierRemote
}

// fetch issues the remote request. Concurrent passes for the same key share
// one request.
func (o *Oracle) fetch(ctx context.Context, viewer *Viewer, threadID string) (bool, error) {
	if o.fetcher == nil {
		return false, ErrNoFetcher
	}
	key := viewer.ID + ":" + threadID
	v, err, shared := o.inflight.Do(key, func() (any, error) {
		timeout := o.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		details, err := o.fetcher.FetchThread(fetchCtx, threadID, viewer)
		if err != nil {
			return false, err
		}
		replied := details.HasPosted(viewer.ID)
		o.cache.Set(viewer.ID, threadID, replied)
		return replied, nil
	})
	if err != nil {
		return false, err
	}
	o.log.Debug().
		Str("thread_id", threadID).
		Str("viewer_id", viewer.ID).
		Bool("replied", v.(bool)).
		Bool("shared", shared).
		Msg("Confirmed participation remotely")
	return v.(bool), nil
}
