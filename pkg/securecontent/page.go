// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultThreadPageClass is the body class the forum sets on full thread pages.
const DefaultThreadPageClass = "topic-page"

// CookedClass marks the element that holds a post's cooked body.
const CookedClass = "cooked"

// Page is the document a decoration pass runs in, together with the ambient
// context the host provides for it.
type Page struct {
	Doc    *html.Node
	Viewer *Viewer
	Locale string
	// ThreadPageClass overrides DefaultThreadPageClass.
	ThreadPageClass string
}

// ParsePage parses a full HTML document.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Page{Doc: doc}, nil
}

// NewPostPage builds a minimal document holding a single cooked post and
// returns the page and the post element.
func NewPostPage(postHTML string, threadPage bool) (*Page, *html.Node, error) {
	bodyClass := ""
	if threadPage {
		bodyClass = ` class="` + DefaultThreadPageClass + `"`
	}
	doc, err := html.Parse(strings.NewReader(`<html><head></head><body` + bodyClass + `><div class="` + CookedClass + `"></div></body></html>`))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build document: %w", err)
	}
	post := QuerySelector(doc, "."+CookedClass)
	if err := SetInnerHTML(post, postHTML); err != nil {
		return nil, nil, err
	}
	return &Page{Doc: doc}, post, nil
}

// IsThreadPage reports whether the document is a full thread page render.
func (p *Page) IsThreadPage() bool {
	class := p.ThreadPageClass
	if class == "" {
		class = DefaultThreadPageClass
	}
	body := QuerySelector(p.Doc, "body")
	return body != nil && hasClass(body, class)
}

// HasPostBy reports whether the document already shows a post written by the
// given user.
func (p *Page) HasPostBy(userID string) bool {
	if userID == "" {
		return false
	}
	for _, article := range QuerySelectorAll(p.Doc, "article[data-user-id]") {
		if getAttr(article, "data-user-id") == userID {
			return true
		}
	}
	return false
}

// Posts returns every cooked post body in the document.
func (p *Page) Posts() []*html.Node {
	return QuerySelectorAll(p.Doc, "."+CookedClass)
}

// Render serializes the whole document.
func (p *Page) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.Doc); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("failed to render node: %w", err)
		}
	}
	return buf.String(), nil
}

// SetInnerHTML replaces the children of n with the parsed fragment.
func SetInnerHTML(n *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragmentContext(n))
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// fragmentContext returns a context element for fragment parsing. Nodes built
// by hand may lack a DataAtom, which the parser relies on.
func fragmentContext(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == 0 {
		return &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: atom.Lookup([]byte(n.Data))}
	}
	return n
}

var selectorCache sync.Map

// CompileSelector parses a CSS selector group. Compiled selectors are cached
// by their source text.
func CompileSelector(sel string) (cascadia.Selector, error) {
	if cached, ok := selectorCache.Load(sel); ok {
		return cached.(cascadia.Selector), nil
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", sel, err)
	}
	selectorCache.Store(sel, compiled)
	return compiled, nil
}

// QuerySelector returns the first descendant of root matching sel, or nil.
// An invalid selector matches nothing.
func QuerySelector(root *html.Node, sel string) *html.Node {
	compiled, err := CompileSelector(sel)
	if err != nil || root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if m := compiled.MatchFirst(c); m != nil {
			return m
		}
	}
	return nil
}

// QuerySelectorAll returns the descendants of root matching sel, in document
// order. An invalid selector matches nothing.
func QuerySelectorAll(root *html.Node, sel string) []*html.Node {
	compiled, err := CompileSelector(sel)
	if err != nil || root == nil {
		return nil
	}
	matches := compiled.MatchAll(root)
	if len(matches) > 0 && matches[0] == root {
		matches = matches[1:]
	}
	return matches
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	classes := strings.Fields(getAttr(n, "class"))
	setAttr(n, "class", strings.Join(append(classes, class), " "))
}

func removeClass(n *html.Node, class string) {
	classes := strings.Fields(getAttr(n, "class"))
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// setDisplayBlock forces display: block, keeping other inline styles.
func setDisplayBlock(n *html.Node) {
	var decls []string
	for _, decl := range strings.Split(getAttr(n, "style"), ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" || strings.HasPrefix(strings.ToLower(decl), "display") {
			continue
		}
		decls = append(decls, decl)
	}
	decls = append(decls, "display: block")
	setAttr(n, "style", strings.Join(decls, "; ")+";")
}
