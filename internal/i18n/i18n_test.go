// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package i18n

import (
	"encoding/json"
	"fmt"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New("en", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_UnsupportedDefault(t *testing.T) {
	if _, err := New("fr", nil); err == nil {
		t.Error("expected error for unsupported default language")
	}
}

func TestT(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		lang     string
		key      string
		args     []any
		expected string
	}{
		{"en", "series.page_views", nil, "Page views"},
		{"de", "series.page_views", nil, "Seitenaufrufe"},
		{"ru", "series.page_views", nil, "Просмотры страниц"},
		{"en", "dashboard.range", []any{"2024-01-01", "2024-01-02"}, "2024-01-01 to 2024-01-02"},
		{"de", "dashboard.range", []any{"2024-01-01", "2024-01-02"}, "2024-01-01 bis 2024-01-02"},
		{"en", "series.event", []any{"signup"}, "Event: signup"},
		// Fallback to the default language for unknown languages
		{"fr", "series.page_views", nil, "Page views"},
		// Return key if not found
		{"en", "nonexistent.key", nil, "nonexistent.key"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"_"+tt.key, func(t *testing.T) {
			if got := c.T(tt.lang, tt.key, tt.args...); got != tt.expected {
				t.Errorf("T(%q, %q, %v) = %q, want %q", tt.lang, tt.key, tt.args, got, tt.expected)
			}
		})
	}
}

func TestT_NilCatalog(t *testing.T) {
	var c *Catalog
	if got := c.T("en", "series.page_views"); got != "series.page_views" {
		t.Errorf("nil catalog T = %q", got)
	}
	if c.Has("series.page_views") {
		t.Error("nil catalog should have no keys")
	}
}

func TestMatch(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		input    string
		wantLang string
		wantTag  string
	}{
		{"en", "en", "en"},
		{"de-CH", "de", "de-CH"},
		{"ru-RU", "ru", "ru-RU"},
		{"fr", "en", "en"},
		{"", "en", "en"},
		{"fr-FR, de-AT;q=0.9", "de", "de-AT"},
		{"en-GB, ru;q=0.9", "en", "en-GB"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lang, tag := c.Match(tt.input)
			if lang != tt.wantLang {
				t.Errorf("Match(%q) lang = %q, want %q", tt.input, lang, tt.wantLang)
			}
			if tag.String() != tt.wantTag {
				t.Errorf("Match(%q) tag = %v, want %v", tt.input, tag, tt.wantTag)
			}
		})
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	keys := func(lang string) map[string]bool {
		data, err := localesFS.ReadFile(fmt.Sprintf("locales/%s/messages.json", lang))
		if err != nil {
			t.Fatalf("reading %s: %v", lang, err)
		}
		var f MessageFile
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("parsing %s: %v", lang, err)
		}
		if f.Language != lang {
			t.Errorf("%s catalog declares language %q", lang, f.Language)
		}
		m := make(map[string]bool, len(f.Messages))
		for _, msg := range f.Messages {
			if m[msg.ID] {
				t.Errorf("%s: duplicate key %q", lang, msg.ID)
			}
			m[msg.ID] = true
		}
		return m
	}

	en := keys("en")
	for _, lang := range SupportedLanguages[1:] {
		other := keys(lang)
		for k := range en {
			if !other[k] {
				t.Errorf("%s: missing key %q", lang, k)
			}
		}
		for k := range other {
			if !en[k] {
				t.Errorf("%s: extra key %q", lang, k)
			}
		}
	}
}
