// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

// PostHelper is the per-post helper the host passes to the decoration hook.
type PostHelper interface {
	// ThreadID returns the id of the thread owning the post, or "" when the
	// post is not rendered as part of a thread.
	ThreadID() string
}

// ThreadIDHelper is a PostHelper for a known thread id.
type ThreadIDHelper string

func (h ThreadIDHelper) ThreadID() string { return string(h) }

// Report summarizes one decoration pass.
type Report struct {
	Mode    Mode            `json:"mode,omitempty"`
	Changed bool            `json:"changed"`
	Regions []RegionOutcome `json:"regions,omitempty"`
}

// Decorator runs decoration passes. One Decorator, and its oracle cache, is
// shared by every post of every page.
type Decorator struct {
	oracle  *Oracle
	catalog *Catalog
	metrics *Metrics
	log     zerolog.Logger
}

// NewDecorator creates a decorator.
func NewDecorator(oracle *Oracle, catalog *Catalog, metrics *Metrics, log zerolog.Logger) *Decorator {
	return &Decorator{
		oracle:  oracle,
		catalog: catalog,
		metrics: metrics,
		log:     log.With().Str("component", "decorator").Logger(),
	}
}

// Oracle returns the decorator's participation oracle.
func (d *Decorator) Oracle() *Oracle {
	return d.oracle
}

// Decorate rewrites the markers inside el and masks or unlocks every
// resulting wrapper. It never fails the host: anything that goes wrong leaves
// the affected regions locked.
func (d *Decorator) Decorate(ctx context.Context, page *Page, el *html.Node, helper PostHelper) Report {
	var report Report
	if el == nil {
		return report
	}
	if page == nil {
		page = &Page{}
	}
	log := d.log

	inner, err := InnerHTML(el)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to serialize post, skipping")
		return report
	}
	if rewritten, changed := markers.Rewrite(inner); changed {
		if err := SetInnerHTML(el, rewritten); err != nil {
			log.Warn().Err(err).Msg("Failed to apply rewritten post, skipping")
			return report
		}
		report.Changed = true
	}

	wrappers := QuerySelectorAll(el, "."+markers.WrapperClass+"["+markers.KindAttr+"]")
	if len(wrappers) == 0 {
		return report
	}

	threadID := ""
	if helper != nil {
		threadID = helper.ThreadID()
	}
	strs := d.catalog.For(page.Locale)

	report.Mode = ClassifyMode(threadID, page.Doc != nil && page.IsThreadPage())
	d.metrics.observeDecoration(report.Mode)
	if report.Mode == ModePreview {
		for _, w := range wrappers {
			MarkPreview(w, strs.PreviewPrefix)
			report.add(d.metrics, WrapperKind(w), StatePreviewed)
		}
		return report
	}

	viewer := page.Viewer
	replied := false
	if viewer != nil && !viewer.Privileged() && threadID != "" && needsReplyCheck(wrappers) {
		replied = d.oracle.HasReplied(ctx, viewer, threadID, page)
	}

	for _, w := range wrappers {
		kind := WrapperKind(w)
		v := Decide(kind, viewer, replied, strs)
		if !v.Locked {
			UnlockContent(w)
			report.add(d.metrics, kind, StateUnlocked)
			continue
		}
		if err := RenderMask(w, kind, v.Icon, v.Message); err != nil {
			// The wrapper keeps its hidden-by-default class.
			log.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to render mask")
		}
		report.add(d.metrics, kind, StateMasked)
	}

	log.Debug().
		Str("thread_id", threadID).
		Str("mode", string(report.Mode)).
		Int("regions", len(report.Regions)).
		Bool("replied", replied).
		Msg("Decorated post")
	return report
}

// DecoratePage decorates every cooked post in the page with the same thread.
func (d *Decorator) DecoratePage(ctx context.Context, page *Page, helper PostHelper) []Report {
	var reports []Report
	for _, post := range page.Posts() {
		reports = append(reports, d.Decorate(ctx, page, post, helper))
	}
	return reports
}

func (r *Report) add(m *Metrics, kind markers.Kind, state State) {
	r.Regions = append(r.Regions, RegionOutcome{Kind: kind, State: state})
	m.observeRegion(kind, state)
}

func needsReplyCheck(wrappers []*html.Node) bool {
	for _, w := range wrappers {
		if WrapperKind(w) == markers.KindReply {
			return true
		}
	}
	return false
}
