// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/statsdash/internal/i18n"
	"github.com/olegiv/statsdash/internal/middleware"
	"github.com/olegiv/statsdash/internal/render"
	"github.com/olegiv/statsdash/internal/stats"
	"github.com/olegiv/statsdash/internal/testutil"
	"github.com/olegiv/statsdash/internal/version"
)

const testPayload = `{
	"total_page_views": 1234,
	"page_views_per_hour": {"2024-01-01 00": 5, "2024-01-01 01": 3, "2024-01-02 00": 2},
	"events_per_name_and_hour": {"quick_sync": {"2024-01-01 00": 1}},
	"requests_per_ip": [{"ip": "1.1.1.1", "country": "US", "count": 50}],
	"referrers": {"example.com": 4}
}`

// fakeFetcher records requested ranges and answers with respond.
type fakeFetcher struct {
	mu      sync.Mutex
	ranges  []stats.DateRange
	respond func(r stats.DateRange) ([]byte, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, r stats.DateRange) ([]byte, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, r)
	f.mu.Unlock()
	return f.respond(r)
}

func (f *fakeFetcher) Ranges() []stats.DateRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stats.DateRange(nil), f.ranges...)
}

func staticFetcher(body string) *fakeFetcher {
	return &fakeFetcher{respond: func(stats.DateRange) ([]byte, error) {
		return []byte(body), nil
	}}
}

type testEnv struct {
	pipeline *stats.Pipeline
	fetcher  *fakeFetcher
	router   chi.Router
}

type envOptions struct {
	handlers func(h *Handlers)
	protect  []func(http.Handler) http.Handler
	checks   map[string]Pinger
}

func newTestEnv(t *testing.T, fetcher *fakeFetcher, opts envOptions) *testEnv {
	t.Helper()
	logger := testutil.TestLoggerSilent()

	catalog, err := i18n.New("en", logger)
	require.NoError(t, err)

	p := stats.NewPipeline(fetcher, stats.Options{
		Logger: logger,
		Now:    func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) },
	})

	h := Handlers{
		Dashboard: NewDashboardHandler(p, render.New(render.Config{Catalog: catalog}), catalog, logger),
		Events:    NewEventsHandler(nil, logger),
		Health:    NewHealthHandler(version.Info{Version: "v1.2.3", GitCommit: "abc1234"}, p, opts.checks),
	}
	if opts.handlers != nil {
		opts.handlers(&h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Language(catalog))
	RegisterRoutes(r, h, opts.protect...)

	return &testEnv{pipeline: p, fetcher: fetcher, router: r}
}

func (e *testEnv) do(method, target, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

type stateBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	State   struct {
		Phase         string          `json:"phase"`
		Granularity   string          `json:"granularity"`
		Stale         bool            `json:"stale"`
		LastErrorKind string          `json:"last_error_kind"`
		Range         stats.DateRange `json:"range"`
		Dashboard     *struct {
			Series []struct {
				Name string `json:"name"`
			} `json:"series"`
			Totals map[string]int64 `json:"totals"`
		} `json:"dashboard"`
	} `json:"state"`
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) stateBody {
	t.Helper()
	var body stateBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}
