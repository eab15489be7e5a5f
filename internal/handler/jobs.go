// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/statsdash/internal/scheduler"
)

// JobRunner lists and triggers scheduled jobs.
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	Run(name string) error
}

// JobsHandler handles scheduler routes.
type JobsHandler struct {
	jobs   JobRunner
	logger *slog.Logger
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(jobs JobRunner, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{jobs: jobs, logger: logger}
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"jobs": h.jobs.Jobs()})
}

// Run handles POST /api/jobs/{name}/run. The job runs synchronously.
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.Run(name); err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Info("job triggered manually", "job", name)
	writeJSONSuccess(w, map[string]any{"job": name})
}
