// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package securecontent

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is used when nothing better matches the viewer's locale.
const DefaultLocale = "en"

// Translation keys, as registered with the host's translation system.
const (
	KeyLoginButtonTitle = "secure_login_btn_title"
	KeyReplyButtonTitle = "secure_reply_btn_title"
	KeyLoginDefaultText = "composer.secure_login_default_text"
	KeyReplyDefaultText = "composer.secure_reply_default_text"
	KeyMaskLogin        = "secure_mask_login"
	KeyMaskReply        = "secure_mask_reply"
	KeyMaskLoginReply   = "secure_mask_login_reply"
	KeyPreviewPrefix    = "secure_preview_prefix"
)

// Strings is the set of user-facing strings for one locale. Mask messages are
// trusted HTML.
type Strings struct {
	LoginButtonTitle string `yaml:"login_button_title" json:"login_button_title,omitempty"`
	ReplyButtonTitle string `yaml:"reply_button_title" json:"reply_button_title,omitempty"`
	LoginDefaultText string `yaml:"login_default_text" json:"login_default_text,omitempty"`
	ReplyDefaultText string `yaml:"reply_default_text" json:"reply_default_text,omitempty"`
	MaskLogin        string `yaml:"mask_login" json:"mask_login,omitempty"`
	MaskReply        string `yaml:"mask_reply" json:"mask_reply,omitempty"`
	MaskLoginReply   string `yaml:"mask_login_reply" json:"mask_login_reply,omitempty"`
	PreviewPrefix    string `yaml:"preview_prefix" json:"preview_prefix,omitempty"`
}

// Lookup resolves a translation key. Unknown keys resolve to the key itself,
// the same way a missing translation shows up in the host.
func (s *Strings) Lookup(key string) string {
	var val string
	switch key {
	case KeyLoginButtonTitle:
		val = s.LoginButtonTitle
	case KeyReplyButtonTitle:
		val = s.ReplyButtonTitle
	case KeyLoginDefaultText:
		val = s.LoginDefaultText
	case KeyReplyDefaultText:
		val = s.ReplyDefaultText
	case KeyMaskLogin:
		val = s.MaskLogin
	case KeyMaskReply:
		val = s.MaskReply
	case KeyMaskLoginReply:
		val = s.MaskLoginReply
	case KeyPreviewPrefix:
		val = s.PreviewPrefix
	}
	if val == "" {
		return key
	}
	return val
}

// overlay copies every non-empty field of o onto s.
func (s *Strings) overlay(o Strings) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&s.LoginButtonTitle, o.LoginButtonTitle)
	set(&s.ReplyButtonTitle, o.ReplyButtonTitle)
	set(&s.LoginDefaultText, o.LoginDefaultText)
	set(&s.ReplyDefaultText, o.ReplyDefaultText)
	set(&s.MaskLogin, o.MaskLogin)
	set(&s.MaskReply, o.MaskReply)
	set(&s.MaskLoginReply, o.MaskLoginReply)
	set(&s.PreviewPrefix, o.PreviewPrefix)
}

// Catalog holds the strings of every known locale.
type Catalog struct {
	locales map[string]*Strings
	names   []string
}

// LoadCatalog reads the embedded locales and applies per-locale overrides. An
// override for a locale that is not embedded starts from the default locale.
func LoadCatalog(overrides map[string]Strings) (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded locales: %w", err)
	}
	c := &Catalog{locales: make(map[string]*Strings, len(entries))}
	for _, entry := range entries {
		data, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", entry.Name(), err)
		}
		var s Strings
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", entry.Name(), err)
		}
		c.locales[strings.TrimSuffix(entry.Name(), ".yaml")] = &s
	}
	base, ok := c.locales[DefaultLocale]
	if !ok {
		return nil, fmt.Errorf("default locale %q is not embedded", DefaultLocale)
	}
	for name, o := range overrides {
		s, ok := c.locales[name]
		if !ok {
			cp := *base
			s = &cp
			c.locales[name] = s
		}
		s.overlay(o)
	}
	for name := range c.locales {
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Locales returns the known locale names, sorted.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.names...)
}

// For returns the strings best matching locale. An exact name wins, then any
// locale sharing the base language (so "zh_TW" and "zh-Hans" both resolve to
// "zh_CN"), then the default locale.
func (c *Catalog) For(locale string) *Strings {
	if s, ok := c.locales[locale]; ok {
		return s
	}
	want := baseLanguage(locale)
	if want != "" {
		for _, name := range c.names {
			if baseLanguage(name) == want {
				return c.locales[name]
			}
		}
	}
	return c.locales[DefaultLocale]
}

func baseLanguage(locale string) string {
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
