// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/statsdash/internal/version"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	info      version.Info
	pipeline  Pipeline
	checks    map[string]Pinger
	startTime time.Time
}

// NewHealthHandler creates a new health handler. Nil checks are skipped.
func NewHealthHandler(info version.Info, p Pipeline, checks map[string]Pinger) *HealthHandler {
	active := make(map[string]Pinger, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{
		info:      info,
		pipeline:  p,
		checks:    active,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Commit    string           `json:"commit,omitempty"`
	Pipeline  string           `json:"pipeline"`
	Stale     bool             `json:"stale"`
	Checks    map[string]Check `json:"checks,omitempty"`
	GoVersion string           `json:"go_version"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /healthz. Failing dependency checks report
// "degraded" with 503. A failed backend fetch does not: the dashboard keeps
// serving the last data.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]Check, len(h.checks))
	overall := "healthy"
	for name, p := range h.checks {
		c := runCheck(r.Context(), p)
		if c.Status != "healthy" {
			overall = "degraded"
		}
		checks[name] = c
	}

	st := h.pipeline.State()
	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.info.Version,
		Commit:    h.info.GitCommit,
		Pipeline:  st.Phase.String(),
		Stale:     st.Stale,
		Checks:    checks,
		GoVersion: runtime.Version(),
	}
	if status.Version == "" {
		status.Version = "dev"
	}

	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Liveness handles GET /healthz/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func runCheck(ctx context.Context, p Pinger) Check {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: "healthy", Latency: latency.String()}
}
