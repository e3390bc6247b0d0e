// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package markers rewrites [login] and [reply] region markers in cooked post
// HTML into wrapper elements.
package markers

import (
	"html"
	"regexp"
)

// Kind is the protection kind of a region.
type Kind string

const (
	KindLogin Kind = "login"
	KindReply Kind = "reply"
)

// Kinds lists the region kinds in the order they are rewritten.
var Kinds = []Kind{KindLogin, KindReply}

// WrapperClass is the class carried by every wrapper element.
const WrapperClass = "secure-wrapper"

// KindAttr holds the region kind on a wrapper element.
const KindAttr = "data-secure-type"

type kindPattern struct {
	open   *regexp.Regexp
	region *regexp.Regexp
}

var (
	patterns = map[Kind]kindPattern{
		KindLogin: {
			open:   regexp.MustCompile(`(?i)\[login\]`),
			region: regexp.MustCompile(`(?is)\[login\](.*?)\[/login\]`),
		},
		KindReply: {
			open:   regexp.MustCompile(`(?i)\[reply\]`),
			region: regexp.MustCompile(`(?is)\[reply\](.*?)\[/reply\]`),
		},
	}

	leadingNoiseRe  = regexp.MustCompile(`(?i)^(\s*<br\s*/?>\s*|\s*</?p>\s*|\s+)+`)
	trailingNoiseRe = regexp.MustCompile(`(?i)(\s*<br\s*/?>\s*|\s*</?p>\s*|\s+)+$`)
)

// Region is one marker pair found in cooked HTML.
type Region struct {
	Kind      Kind
	InnerHTML string
}

// Clean strips whitespace, line breaks and paragraph tags hugging the start
// and end of captured region content.
func Clean(inner string) string {
	if inner == "" {
		return ""
	}
	inner = leadingNoiseRe.ReplaceAllString(inner, "")
	return trailingNoiseRe.ReplaceAllString(inner, "")
}

// WrapperHTML renders the wrapper element for a region.
func WrapperHTML(r Region) string {
	return `<div class="` + WrapperClass + `" ` + KindAttr + `="` + html.EscapeString(string(r.Kind)) + `">` + r.InnerHTML + `</div>`
}

// Find returns the regions of the given kind in document order.
func Find(text string, kind Kind) []Region {
	p, ok := patterns[kind]
	if !ok {
		return nil
	}
	var regions []Region
	for _, m := range p.region.FindAllStringSubmatch(text, -1) {
		regions = append(regions, Region{Kind: kind, InnerHTML: Clean(m[1])})
	}
	return regions
}

// Rewrite replaces every complete marker pair with a wrapper element. The
// second return value reports whether anything was replaced. Unterminated
// markers are left as they are.
func Rewrite(text string) (string, bool) {
	changed := false
	for _, kind := range Kinds {
		p := patterns[kind]
		if !p.open.MatchString(text) {
			continue
		}
		text = p.region.ReplaceAllStringFunc(text, func(match string) string {
			parts := p.region.FindStringSubmatch(match)
			if len(parts) < 2 {
				return match
			}
			changed = true
			return WrapperHTML(Region{Kind: kind, InnerHTML: Clean(parts[1])})
		})
	}
	return text, changed
}
