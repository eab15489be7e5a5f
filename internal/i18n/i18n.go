// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides the dashboard UI translations and locale negotiation.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// SupportedLanguages lists the UI languages with a message catalog.
var SupportedLanguages = []string{"en", "de", "ru"}

// Catalog holds the translations of all supported languages.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	defaultLang  string
	logger       *slog.Logger
}

// New loads the embedded catalogs. defaultLang must be one of
// SupportedLanguages; it is listed first so the matcher falls back to it.
func New(defaultLang string, logger *slog.Logger) (*Catalog, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	if !isSupported(defaultLang) {
		return nil, fmt.Errorf("unsupported default language %q", defaultLang)
	}

	c := &Catalog{
		translations: make(map[string]map[string]string),
		defaultLang:  defaultLang,
		logger:       logger,
	}

	langs := []string{defaultLang}
	for _, lang := range SupportedLanguages {
		if lang != defaultLang {
			langs = append(langs, lang)
		}
	}
	for _, lang := range langs {
		c.supported = append(c.supported, language.MustParse(lang))
		if err := c.loadLanguage(lang); err != nil {
			return nil, fmt.Errorf("failed to load language %s: %w", lang, err)
		}
	}
	c.matcher = language.NewMatcher(c.supported)

	if logger != nil {
		logger.Debug("i18n initialized", "languages", langs, "default", defaultLang)
	}
	return c, nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.translations[lang] = make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		c.translations[lang][msg.ID] = msg.Translation
	}
	return nil
}

// T translates a message key to lang, falling back to the default language
// and then to the key itself. Arguments are applied with fmt.Sprintf.
func (c *Catalog) T(lang, key string, args ...any) string {
	if c == nil {
		return key
	}

	c.mu.RLock()
	translation, ok := c.translations[lang][key]
	if !ok {
		translation, ok = c.translations[c.defaultLang][key]
	}
	c.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// Has reports whether key has a translation in the default language.
func (c *Catalog) Has(key string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.translations[c.defaultLang][key]
	return ok
}

// Match negotiates an Accept-Language header or language code against the
// supported languages. It returns the matched UI language code and the
// requested tag of that language, which keeps the region for number and
// country formatting.
func (c *Catalog) Match(acceptLang string) (string, language.Tag) {
	def := language.MustParse(c.defaultLang)

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return c.defaultLang, def
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(c.supported) {
		return c.defaultLang, def
	}
	base, _ := c.supported[idx].Base()
	for _, tag := range tags {
		if b, _ := tag.Base(); b == base {
			return base.String(), tag
		}
	}
	return base.String(), c.supported[idx]
}

// DefaultLanguage returns the fallback UI language.
func (c *Catalog) DefaultLanguage() string {
	return c.defaultLang
}

func isSupported(lang string) bool {
	for _, supported := range SupportedLanguages {
		if supported == lang {
			return true
		}
	}
	return false
}
