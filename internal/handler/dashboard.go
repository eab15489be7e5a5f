// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/text/language"

	"github.com/olegiv/statsdash/internal/i18n"
	"github.com/olegiv/statsdash/internal/middleware"
	"github.com/olegiv/statsdash/internal/render"
	"github.com/olegiv/statsdash/internal/stats"
)

// Pipeline is the subset of *stats.Pipeline used by the handlers.
type Pipeline interface {
	Load(ctx context.Context, start, end string) (stats.State, error)
	Refresh(ctx context.Context) (stats.State, error)
	SetGranularity(g stats.Granularity) stats.State
	State() stats.State
}

// DashboardHandler serves the chart page and the pipeline API.
type DashboardHandler struct {
	pipeline Pipeline
	renderer *render.Renderer
	catalog  *i18n.Catalog
	logger   *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(p Pipeline, renderer *render.Renderer, catalog *i18n.Catalog, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		pipeline: p,
		renderer: renderer,
		catalog:  catalog,
		logger:   logger,
	}
}

// Page handles GET / and renders the current state as charts.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	lang, ok := middleware.GetLanguage(r)
	if !ok {
		lang = middleware.LanguageInfo{Code: h.catalog.DefaultLanguage(), Tag: language.Make(h.catalog.DefaultLanguage())}
	}

	err := h.renderer.Render(w, render.PageData{
		State: h.pipeline.State(),
		Lang:  lang.Code,
		Tag:   lang.Tag,
	})
	if err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// State handles GET /api/state.
func (h *DashboardHandler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"state": h.pipeline.State()})
}

type loadRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Load handles POST /api/load. The range comes from a JSON body or from
// the start and end form or query values; both empty selects the default
// range.
func (h *DashboardHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	decoded, err := decodeOptionalJSON(r, &req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !decoded {
		req.Start = r.FormValue("start")
		req.End = r.FormValue("end")
	}

	st, err := h.pipeline.Load(r.Context(), req.Start, req.End)
	if err != nil {
		h.writeLoadError(w, st, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"state": st})
}

// Refresh handles POST /api/refresh.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	st, err := h.pipeline.Refresh(r.Context())
	if err != nil {
		h.writeLoadError(w, st, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"state": st})
}

type granularityRequest struct {
	Granularity string `json:"granularity"`
}

// SetGranularity handles PUT and POST /api/granularity.
func (h *DashboardHandler) SetGranularity(w http.ResponseWriter, r *http.Request) {
	var req granularityRequest
	decoded, err := decodeOptionalJSON(r, &req)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !decoded {
		req.Granularity = r.FormValue("granularity")
	}

	g, err := stats.ParseGranularity(req.Granularity)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONSuccess(w, map[string]any{"state": h.pipeline.SetGranularity(g)})
}

// writeLoadError maps pipeline errors to HTTP status codes. The state is
// included so clients keep showing the retained dashboard.
func (h *DashboardHandler) writeLoadError(w http.ResponseWriter, st stats.State, err error) {
	status := loadErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("dashboard load failed", "error", err, "status", status)
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
		"state":   st,
	})
}

func loadErrorStatus(err error) int {
	switch {
	case errors.Is(err, stats.ErrInvalidRange), errors.Is(err, stats.ErrUnknownGranularity):
		return http.StatusBadRequest
	case errors.Is(err, stats.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, stats.ErrNetworkFailure), errors.Is(err, stats.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
