// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/statsdash/internal/store"
	"github.com/olegiv/statsdash/internal/testutil"
)

type eventsBody struct {
	Success bool        `json:"success"`
	Events  []EventView `json:"events"`
}

type fakeEvents struct {
	limit int
	err   error
}

func (f *fakeEvents) ListEvents(_ context.Context, limit int) ([]store.Event, error) {
	f.limit = limit
	return nil, f.err
}

func TestEventsListFromStore(t *testing.T) {
	s := testutil.TestStore(t)
	ctx := context.Background()

	_, err := s.CreateEvent(ctx, store.CreateEventParams{
		Level:     store.EventLevelWarning,
		Category:  store.EventCategoryFetch,
		Message:   "stats load failed",
		Metadata:  `{"kind":"network_failure","seq":3}`,
		CreatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = s.CreateEvent(ctx, store.CreateEventParams{
		Level:     store.EventLevelError,
		Category:  store.EventCategorySystem,
		Message:   "newer",
		CreatedAt: time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	env := newTestEnv(t, staticFetcher(testPayload), envOptions{handlers: func(h *Handlers) {
		h.Events = NewEventsHandler(s, testutil.TestLoggerSilent())
	}})

	rr := env.do(http.MethodGet, "/api/events", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body eventsBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, "newer", body.Events[0].Message)
	assert.Equal(t, "stats load failed", body.Events[1].Message)
	assert.Equal(t, "kind: network_failure, seq: 3", body.Events[1].Details)
	assert.Equal(t, store.EventCategoryFetch, body.Events[1].Category)
}

func TestEventsListWithoutStore(t *testing.T) {
	env := newTestEnv(t, staticFetcher(testPayload), envOptions{})

	rr := env.do(http.MethodGet, "/api/events", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"events":[]}`, rr.Body.String())
}

func TestEventsLimit(t *testing.T) {
	fake := &fakeEvents{}
	env := newTestEnv(t, staticFetcher(testPayload), envOptions{handlers: func(h *Handlers) {
		h.Events = NewEventsHandler(fake, testutil.TestLoggerSilent())
	}})

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/events", "", "").Code)
	assert.Equal(t, EventsDefaultLimit, fake.limit)

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/events?limit=5", "", "").Code)
	assert.Equal(t, 5, fake.limit)

	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/events?limit=100000", "", "").Code)
	assert.Equal(t, EventsMaxLimit, fake.limit)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/events?limit=0", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/events?limit=abc", "", "").Code)
}

func TestEventsListError(t *testing.T) {
	env := newTestEnv(t, staticFetcher(testPayload), envOptions{handlers: func(h *Handlers) {
		h.Events = NewEventsHandler(&fakeEvents{err: errors.New("db gone")}, testutil.TestLoggerSilent())
	}})

	rr := env.do(http.MethodGet, "/api/events", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestFormatMetadata(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"{}", ""},
		{"not json", "not json"},
		{`{"b":true,"a":"x"}`, "a: x, b: true"},
		{`{"n":1.5,"obj":{"k":1}}`, `n: 1.5, obj: {"k":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatMetadata(tt.in), tt.in)
	}
}
