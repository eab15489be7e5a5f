// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/statsdash/internal/cache"
)

// CacheHandler exposes the payload cache.
type CacheHandler struct {
	cache  cache.Cacher
	logger *slog.Logger
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(c cache.Cacher, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{cache: c, logger: logger}
}

// Stats handles GET /api/cache.
func (h *CacheHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	sp, ok := h.cache.(cache.StatsProvider)
	if !ok {
		writeJSONSuccess(w, map[string]any{"stats": nil})
		return
	}
	writeJSONSuccess(w, map[string]any{"stats": sp.Stats()})
}

// Clear handles POST /api/cache/clear. It drops every cached payload and
// zeroes the hit counters.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear cache", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		sp.ResetStats()
	}
	h.logger.Info("payload cache cleared")
	writeJSONSuccess(w, nil)
}
