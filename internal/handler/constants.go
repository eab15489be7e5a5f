// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the chart page.
	RouteRoot = "/"
	// RouteHealth is the health check route.
	RouteHealth = "/healthz"
	// RouteHealthLive is the liveness route.
	RouteHealthLive = "/healthz/live"

	// RouteAPI is the JSON API prefix.
	RouteAPI = "/api"
	// RouteState returns the pipeline state.
	RouteState = "/state"
	// RouteLoad loads a date range.
	RouteLoad = "/load"
	// RouteGranularity switches the series resolution.
	RouteGranularity = "/granularity"
	// RouteRefresh reloads the current range.
	RouteRefresh = "/refresh"
	// RouteEvents lists the event log.
	RouteEvents = "/events"
	// RouteJobs lists scheduled jobs.
	RouteJobs = "/jobs"
	// RouteJobRun runs a scheduled job now.
	RouteJobRun = "/jobs/{name}/run"
	// RouteCache returns payload cache statistics.
	RouteCache = "/cache"
	// RouteCacheClear clears the payload cache.
	RouteCacheClear = "/cache/clear"
)

// EventsDefaultLimit is the number of events returned when no limit is given.
const EventsDefaultLimit = 50

// EventsMaxLimit caps the limit query parameter.
const EventsMaxLimit = 500
