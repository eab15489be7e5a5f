// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeadersProduction(t *testing.T) {
	handler := SecurityHeaders(DefaultSecurityHeadersConfig(false))(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rr.Header()
	if got := h.Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
	if got := h.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	csp := h.Get("Content-Security-Policy")
	if !strings.Contains(csp, ChartAssetsHost) {
		t.Errorf("CSP %q does not allow chart assets", csp)
	}
	if !strings.HasPrefix(csp, "default-src 'self'; script-src") {
		t.Errorf("CSP directives out of order: %q", csp)
	}
}

func TestSecurityHeadersDevelopmentSkipsHSTS(t *testing.T) {
	handler := SecurityHeaders(DefaultSecurityHeadersConfig(true))(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS = %q in development, want empty", got)
	}
}

func TestBuildPermissionsPolicySorted(t *testing.T) {
	got := buildPermissionsPolicy(map[string]string{"usb": "()", "camera": "()"})
	if got != "camera=(), usb=()" {
		t.Errorf("buildPermissionsPolicy = %q", got)
	}
}

func TestBuildCSPExtraDirectives(t *testing.T) {
	got := buildCSP(map[string]string{
		"worker-src":  "'none'",
		"default-src": "'self'",
	})
	if got != "default-src 'self'; worker-src 'none'" {
		t.Errorf("buildCSP = %q", got)
	}
}
