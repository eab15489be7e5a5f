// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import "context"

type forceRefreshKey struct{}

// WithForceRefresh marks ctx so that caching fetchers go to the backend.
func WithForceRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, forceRefreshKey{}, true)
}

// IsForceRefresh reports whether ctx was marked by WithForceRefresh.
func IsForceRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(forceRefreshKey{}).(bool)
	return v
}
