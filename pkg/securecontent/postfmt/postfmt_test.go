// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postfmt

import (
	"strings"
	"testing"

	"github.com/aiku/securecontent/pkg/securecontent/markers"
)

func TestCookEmpty(t *testing.T) {
	t.Parallel()
	got, err := Cook("")
	if err != nil {
		t.Fatalf("Cook: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestCookKeepsMarkersAsText(t *testing.T) {
	t.Parallel()
	raw := "intro\n\n[login]\nsecret **bold**\n[/login]\n"
	got, err := Cook(raw)
	if err != nil {
		t.Fatalf("Cook: %v", err)
	}
	for _, want := range []string{"[login]", "[/login]", "<strong>bold</strong>", "<p>intro</p>"} {
		if !strings.Contains(got, want) {
			t.Errorf("cooked output missing %q: %q", want, got)
		}
	}
}

func TestCookThenRewrite(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{"single paragraph", "[reply]\nthe answer\n[/reply]"},
		{"separate paragraphs", "[reply]\n\nthe answer\n\n[/reply]"},
		{"toolbar surround", "text before\n[reply]\nthe answer\n[/reply]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cooked, err := Cook(tt.raw)
			if err != nil {
				t.Fatalf("Cook: %v", err)
			}
			out, changed := markers.Rewrite(cooked)
			if !changed {
				t.Fatalf("no wrapper produced from %q", cooked)
			}
			if !strings.Contains(out, `data-secure-type="reply">the answer</div>`) {
				t.Errorf("wrapper content not clean: %q", out)
			}
		})
	}
}

func TestCookStripsScripts(t *testing.T) {
	t.Parallel()
	got, err := Cook("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Cook: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("script survived sanitizing: %q", got)
	}
}

func TestExcerpt(t *testing.T) {
	t.Parallel()
	if got := Excerpt(""); got != "" {
		t.Errorf("empty: got %q", got)
	}
	got := Excerpt(`<p>hello <strong>world</strong></p><div class="secure-content-mask"><div class="secure-text">Content hidden.</div></div>`)
	for _, want := range []string{"hello", "world", "Content hidden."} {
		if !strings.Contains(got, want) {
			t.Errorf("excerpt missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "<") {
		t.Errorf("excerpt still contains markup: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"hello world", 5, "hello…"},
		{"héllo wörld", 6, "héllo…"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d): got %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []string
		not  []string
	}{
		{
			name: "empty",
			in:   "",
		},
		{
			name: "mask keeps message and link",
			in: `<p>intro</p><div class="secure-wrapper" data-secure-type="login"><div class="secure-content-mask">` +
				`<div class="secure-text">Please <a href="/login">Log In</a> to view.</div></div></div>`,
			want: []string{"intro", "[Log In](/login)", "to view."},
		},
		{
			name: "unlocked keeps content",
			in:   `<div class="secure-unlocked"><p><strong>answer</strong></p></div>`,
			want: []string{"**answer**"},
			not:  []string{"<div"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Markdown(tt.in)
			if err != nil {
				t.Fatalf("Markdown: %v", err)
			}
			if tt.in == "" && got != "" {
				t.Errorf("got %q, want empty", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q: %q", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("output should not contain %q: %q", n, got)
				}
			}
		})
	}
}
