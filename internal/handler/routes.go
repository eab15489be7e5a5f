// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers groups the route handlers. Jobs and Cache are optional.
type Handlers struct {
	Dashboard *DashboardHandler
	Events    *EventsHandler
	Health    *HealthHandler
	Jobs      *JobsHandler
	Cache     *CacheHandler
}

// RegisterRoutes mounts the page and the JSON API on r. protect wraps the
// state-changing API routes, typically with CSRF and rate limiting.
func RegisterRoutes(r chi.Router, h Handlers, protect ...func(http.Handler) http.Handler) {
	r.Get(RouteHealth, h.Health.Health)
	r.Get(RouteHealthLive, h.Health.Liveness)

	r.Get(RouteRoot, h.Dashboard.Page)

	r.Route(RouteAPI, func(r chi.Router) {
		r.Get(RouteState, h.Dashboard.State)
		r.Get(RouteEvents, h.Events.List)
		if h.Jobs != nil {
			r.Get(RouteJobs, h.Jobs.List)
		}
		if h.Cache != nil {
			r.Get(RouteCache, h.Cache.Stats)
		}

		r.Group(func(r chi.Router) {
			r.Use(protect...)
			r.Post(RouteLoad, h.Dashboard.Load)
			r.Post(RouteRefresh, h.Dashboard.Refresh)
			r.Put(RouteGranularity, h.Dashboard.SetGranularity)
			r.Post(RouteGranularity, h.Dashboard.SetGranularity)
			if h.Jobs != nil {
				r.Post(RouteJobRun, h.Jobs.Run)
			}
			if h.Cache != nil {
				r.Post(RouteCacheClear, h.Cache.Clear)
			}
		})
	})
}
