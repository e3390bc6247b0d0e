// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"html"

	nethtml "golang.org/x/net/html"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

const (
	maskClass     = "secure-content-mask"
	previewClass  = "secure-preview"
	unlockedClass = "secure-unlocked"
	triggerClass  = "trigger-reply"
	previewAttr   = "data-preview-prefix"
	actionAttr    = "data-secure-action"
	actionReply   = "reply"
)

// DefaultReplySelectors are the page chrome controls that open the reply
// composer, in order of preference.
var DefaultReplySelectors = []string{
	".topic-footer-main-buttons .create",
	".post-action-menu__reply",
	"#topic-footer-buttons .btn-primary",
}

// RenderMask replaces the wrapper's content with the locked presentation.
func RenderMask(el *nethtml.Node, kind markers.Kind, icon, messageHTML string) error {
	icon = html.EscapeString(icon)
	mask := `<div class="` + maskClass + ` apple-style type-` + html.EscapeString(string(kind)) + `">` +
		`<div class="secure-icon-container">` +
		`<svg class="fa d-icon d-icon-` + icon + ` svg-icon"><use href="#` + icon + `"></use></svg>` +
		`</div>` +
		`<div class="secure-text">` + messageHTML + `</div>` +
		`</div>`
	if err := SetInnerHTML(el, mask); err != nil {
		return err
	}
	for _, trigger := range QuerySelectorAll(el, "."+triggerClass) {
		setAttr(trigger, actionAttr, actionReply)
	}
	setDisplayBlock(el)
	setAttr(el, StateAttr, string(StateMasked))
	return nil
}

// UnlockContent reveals the wrapper's content.
func UnlockContent(el *nethtml.Node) {
	removeClass(el, markers.WrapperClass)
	addClass(el, unlockedClass)
	setDisplayBlock(el)
	setAttr(el, StateAttr, string(StateUnlocked))
}

// MarkPreview turns a wrapper into a static, non-interactive preview.
func MarkPreview(el *nethtml.Node, prefix string) {
	addClass(el, previewClass)
	setAttr(el, previewAttr, prefix)
	setAttr(el, StateAttr, string(StatePreviewed))
}

// TriggerActionKind is what a click on a reply trigger does.
type TriggerActionKind string

const (
	ActionActivate       TriggerActionKind = "activate"
	ActionScrollToBottom TriggerActionKind = "scroll_to_bottom"
)

// TriggerAction is the resolved effect of clicking a reply trigger. The
// click's default navigation is always suppressed.
type TriggerAction struct {
	Action         TriggerActionKind `json:"action"`
	PreventDefault bool              `json:"prevent_default"`
	Selector       string            `json:"selector,omitempty"`
	Target         *nethtml.Node     `json:"-"`
}

// ResolveReplyTrigger finds the first reply control present in the page,
// falling back to scrolling to the bottom of the page.
func ResolveReplyTrigger(page *Page, selectors []string) TriggerAction {
	if len(selectors) == 0 {
		selectors = DefaultReplySelectors
	}
	if page != nil && page.Doc != nil {
		for _, sel := range selectors {
			if target := QuerySelector(page.Doc, sel); target != nil {
				return TriggerAction{Action: ActionActivate, PreventDefault: true, Selector: sel, Target: target}
			}
		}
	}
	return TriggerAction{Action: ActionScrollToBottom, PreventDefault: true}
}

// IsReplyTrigger reports whether n is a reply trigger inside a mask.
func IsReplyTrigger(n *nethtml.Node) bool {
	return n != nil && n.Type == nethtml.ElementNode && getAttr(n, actionAttr) == actionReply
}

// WrapperState returns the recorded state of a wrapper element.
func WrapperState(el *nethtml.Node) State {
	if s := getAttr(el, StateAttr); s != "" {
		return State(s)
	}
	return StateWrapped
}

// WrapperKind returns the region kind of a wrapper element.
func WrapperKind(el *nethtml.Node) markers.Kind {
	return markers.Kind(getAttr(el, markers.KindAttr))
}
