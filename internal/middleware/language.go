// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/olegiv/statsdash/internal/i18n"
)

// ContextKeyLanguage is the context key for the negotiated language.
const ContextKeyLanguage ContextKey = "language"

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "statsdash_lang"

// LanguageInfo holds language data for the request context.
type LanguageInfo struct {
	// Code is the UI catalog language, e.g. "de".
	Code string
	// Tag is the requested tag for Code, e.g. de-CH, used for number and
	// country name formatting.
	Tag language.Tag
}

// Language creates middleware that negotiates the UI language.
// Priority order:
// 1. Query parameter ?lang=XX (explicit switch, updates cookie)
// 2. Cookie preference
// 3. Accept-Language header
// 4. Catalog default language
func Language(catalog *i18n.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if q := strings.TrimSpace(r.URL.Query().Get("lang")); q != "" {
				if info, ok := matchExact(catalog, q); ok {
					SetLanguageCookie(w, info.Code)
					next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), info)))
					return
				}
			}

			if cookie, err := r.Cookie(LanguageCookieName); err == nil {
				if info, ok := matchExact(catalog, cookie.Value); ok {
					next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), info)))
					return
				}
			}

			code, tag := catalog.Match(r.Header.Get("Accept-Language"))
			info := LanguageInfo{Code: code, Tag: tag}
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), info)))
		})
	}
}

// matchExact accepts a tag only when its base language has a catalog, so an
// unknown ?lang value does not overwrite the cookie with the default.
func matchExact(catalog *i18n.Catalog, value string) (LanguageInfo, bool) {
	tag, err := language.Parse(value)
	if err != nil {
		return LanguageInfo{}, false
	}
	base, _ := tag.Base()
	code, matched := catalog.Match(value)
	if code != base.String() {
		return LanguageInfo{}, false
	}
	return LanguageInfo{Code: code, Tag: matched}, true
}

// WithLanguage stores info in ctx.
func WithLanguage(ctx context.Context, info LanguageInfo) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, info)
}

// GetLanguage retrieves the negotiated language from the request context.
// The second return value is false when the Language middleware did not run.
func GetLanguage(r *http.Request) (LanguageInfo, bool) {
	info, ok := r.Context().Value(ContextKeyLanguage).(LanguageInfo)
	return info, ok
}

// SetLanguageCookie sets the language preference cookie.
func SetLanguageCookie(w http.ResponseWriter, langCode string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LanguageCookieName,
		Value:    langCode,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
