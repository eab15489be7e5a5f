// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/statsdash/internal/cache"
	"github.com/olegiv/statsdash/internal/stats"
)

// cachedPayload is the cache entry for one date range.
type cachedPayload struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CachedFetcher serves payloads from a cache in front of another fetcher.
// Contexts marked with stats.WithForceRefresh skip the lookup but still
// store the fresh payload.
type CachedFetcher struct {
	next   stats.Fetcher
	cache  *cache.TypedCache[cachedPayload]
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedFetcher wraps next with a cache. A zero ttl uses the cache default.
func NewCachedFetcher(next stats.Fetcher, c cache.Cacher, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{
		next:   next,
		cache:  cache.NewTypedCache[cachedPayload](c, ttl),
		logger: logger,
		now:    time.Now,
	}
}

// CacheKey returns the cache key of a date range.
func CacheKey(r stats.DateRange) string {
	return "stats:" + r.Start + ":" + r.End
}

// Fetch implements stats.Fetcher.
func (f *CachedFetcher) Fetch(ctx context.Context, r stats.DateRange) ([]byte, error) {
	key := CacheKey(r)

	if !stats.IsForceRefresh(ctx) {
		if entry, ok := f.cache.Get(ctx, key); ok {
			f.logger.Debug("stats cache hit", "key", key, "fetched_at", entry.FetchedAt)
			return entry.Body, nil
		}
	}

	body, err := f.next.Fetch(ctx, r)
	if err != nil {
		return nil, err
	}

	// Undecodable payloads are returned for the caller to reject but never cached.
	if _, err := stats.DecodePayload(body); err != nil {
		f.logger.Debug("not caching malformed stats payload", "key", key, "error", err)
		return body, nil
	}

	if err := f.cache.Set(ctx, key, &cachedPayload{Body: body, FetchedAt: f.now()}); err != nil {
		f.logger.Warn("failed to cache stats payload", "key", key, "error", err)
	}
	return body, nil
}

var _ stats.Fetcher = (*CachedFetcher)(nil)
