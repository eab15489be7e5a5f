// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/olegiv/statsdash/internal/i18n"
	"github.com/olegiv/statsdash/internal/stats"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	catalog, err := i18n.New("en", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return New(Config{Catalog: catalog, Location: time.UTC})
}

func testDashboard() *stats.Dashboard {
	return &stats.Dashboard{
		Range:       stats.DateRange{Start: "2024-01-01", End: "2024-01-02"},
		Granularity: stats.Daily,
		Totals:      map[string]int64{"total_page_views": 1234567, "current_visitors": 7},
		Series: []stats.NamedSeries{
			{Name: stats.SeriesPageViews, Series: stats.ChartSeries{
				Categories: []string{"2024-01-01", "2024-01-02"},
				Values:     []float64{10, 20},
			}},
			{Name: stats.SeriesEventPrefix + "quick_sync", Series: stats.ChartSeries{
				Categories: []string{"2024-01-01"},
				Values:     []float64{3},
			}},
		},
		Rankings: []stats.Ranking{
			{Name: stats.MetricReferrers, Kind: stats.PlainRanking, Entries: []stats.RankedEntry{
				{Label: "example.com", Value: 50},
				{Label: "<script>alert(1)</script>evil.example", Value: 5},
			}},
		},
		FetchedAt: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderChartPage(t *testing.T) {
	r := newTestRenderer(t)
	rr := httptest.NewRecorder()

	err := r.Render(rr, PageData{
		State: stats.State{Phase: stats.Ready, Dashboard: testDashboard()},
		Lang:  "de",
		Tag:   language.German,
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, "Statistik-Dashboard")
	assert.Contains(t, body, "Seitenaufrufe")
	assert.Contains(t, body, "Schnellsynchronisierungen")
	assert.Contains(t, body, "Verweise")
	assert.Contains(t, body, "2024-01-01 bis 2024-01-02")
	assert.Contains(t, body, "Seitenaufrufe gesamt: 1.234.567")
	assert.Contains(t, body, "evil.example")
	assert.NotContains(t, body, "alert(1)")
}

func TestRenderEmptyPage(t *testing.T) {
	r := newTestRenderer(t)
	rr := httptest.NewRecorder()

	err := r.Render(rr, PageData{State: stats.State{Phase: stats.Idle}, Lang: "en", Tag: language.English})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "<h1>Stats dashboard</h1>")
	assert.Contains(t, body, "No data yet")
	assert.Contains(t, body, "Waiting for the first load")
}

func TestRenderEmptyPageShowsFailure(t *testing.T) {
	r := newTestRenderer(t)
	rr := httptest.NewRecorder()

	err := r.Render(rr, PageData{
		State: stats.State{Phase: stats.Failed, LastError: "network failure: <refused>"},
		Lang:  "en",
		Tag:   language.English,
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "Last update failed: network failure: &lt;refused&gt;")
}

func TestPageNilWithoutCharts(t *testing.T) {
	r := newTestRenderer(t)
	dash := &stats.Dashboard{Totals: map[string]int64{"total_visitors": 3}}

	assert.Nil(t, r.Page(PageData{State: stats.State{Phase: stats.Ready, Dashboard: dash}}))
	assert.Nil(t, r.Page(PageData{}))
}

func TestHeaderStatusLines(t *testing.T) {
	r := newTestRenderer(t)
	st := stats.State{
		Phase:     stats.Fetching,
		Dashboard: testDashboard(),
		Stale:     true,
		LastError: "malformed response",
	}

	lines := r.statusLines(PageData{State: st, Lang: "en"})
	assert.Equal(t, []string{
		"Loading",
		"Last update failed: malformed response",
		"Showing data fetched at 2024-01-02 12:00",
	}, lines)
}

func TestTotalsLineGrouping(t *testing.T) {
	r := newTestRenderer(t)
	totals := map[string]int64{"total_visitors": 1500, "unknown_metric": 2}

	en := r.totalsLine("en", totals, printerFor(language.English))
	assert.Equal(t, "Totals | Total visitors: 1,500 | unknown_metric: 2", en)

	de := r.totalsLine("de", totals, printerFor(language.German))
	assert.Equal(t, "Summen | Besucher gesamt: 1.500 | unknown_metric: 2", de)

	assert.Empty(t, r.totalsLine("en", nil, printerFor(language.English)))
}

func TestTitles(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, "Page views", r.SeriesTitle("en", stats.SeriesPageViews))
	assert.Equal(t, "Accounts created", r.SeriesTitle("en", "events.account_created"))
	assert.Equal(t, "Event: signup", r.SeriesTitle("en", "events.signup"))
	assert.Equal(t, "Requests per IP", r.RankingTitle("en", stats.MetricRequestsPerIP))
	assert.Equal(t, "custom", r.RankingTitle("en", "custom"))
}

func TestSanitizeLabel(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, "evil.example", r.SanitizeLabel("<script>alert(1)</script>evil.example"))
	assert.Equal(t, "1.1.1.1 - 🇺🇸", r.SanitizeLabel("1.1.1.1 - 🇺🇸"))
	assert.Equal(t, "bold", r.SanitizeLabel("<b>bold</b>"))
	assert.Equal(t, "https://ex.com/?a=1&b=2", r.SanitizeLabel("https://ex.com/?a=1&b=2"))
	assert.Equal(t, "Tom & Jerry", r.SanitizeLabel("<i>Tom</i> & Jerry"))
}

func TestRenderRankingLabelsArePlainText(t *testing.T) {
	r := newTestRenderer(t)
	dash := testDashboard()
	dash.Rankings[0].Entries = []stats.RankedEntry{{Label: "https://ex.com/?a=1&b=2", Value: 9}}

	rr := httptest.NewRecorder()
	err := r.Render(rr, PageData{
		State: stats.State{Phase: stats.Ready, Dashboard: dash},
		Lang:  "en",
		Tag:   language.English,
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "ex.com")
	assert.NotContains(t, body, "amp;b=2")
}
