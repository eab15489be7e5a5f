// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/statsdash/internal/store"
)

// EventLister reads the persistent event log.
type EventLister interface {
	ListEvents(ctx context.Context, limit int) ([]store.Event, error)
}

// EventsHandler handles event log routes.
type EventsHandler struct {
	events EventLister
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler. A nil lister serves an
// empty log, for runs without persistence.
func NewEventsHandler(events EventLister, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{events: events, logger: logger}
}

// EventView is an event with its metadata flattened for display.
type EventView struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /api/events?limit=N.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := EventsDefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, EventsMaxLimit)
	}

	views := []EventView{}
	if h.events != nil {
		events, err := h.events.ListEvents(r.Context(), limit)
		if err != nil {
			h.logger.Error("failed to list events", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "Failed to list events")
			return
		}
		for _, e := range events {
			views = append(views, EventView{
				ID:        e.ID,
				Level:     e.Level,
				Category:  e.Category,
				Message:   e.Message,
				Details:   formatMetadata(e.Metadata),
				CreatedAt: e.CreatedAt,
			})
		}
	}

	writeJSONSuccess(w, map[string]any{"events": views})
}

// formatMetadata converts JSON metadata to readable text format.
// Example: {"range":"2024-01-01..2024-01-02","error":"timeout"} -> "error: timeout, range: 2024-01-01..2024-01-02"
func formatMetadata(metadata string) string {
	if metadata == "" || metadata == "{}" {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(metadata), &data); err != nil {
		return metadata
	}
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var strValue string
		switch v := data[key].(type) {
		case string:
			strValue = v
		case float64:
			strValue = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			strValue = strconv.FormatBool(v)
		default:
			if b, err := json.Marshal(v); err == nil {
				strValue = string(b)
			}
		}
		parts = append(parts, key+": "+strValue)
	}
	return strings.Join(parts, ", ")
}
