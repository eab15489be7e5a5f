// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render draws pipeline snapshots as an HTML chart page.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/olegiv/statsdash/internal/i18n"
	"github.com/olegiv/statsdash/internal/stats"
)

// Chart defaults.
const (
	DefaultChartWidth  = "960px"
	DefaultChartHeight = "420px"
	chartTextColor     = "#333"
	chartBackground    = "#fff"
	timeLayout         = "2006-01-02 15:04"
)

// Config holds renderer configuration.
type Config struct {
	Catalog  *i18n.Catalog
	Location *time.Location

	// AssetsHost overrides the echarts script host.
	AssetsHost  string
	ChartWidth  string
	ChartHeight string
}

// Renderer builds chart pages from pipeline state.
type Renderer struct {
	catalog   *i18n.Catalog
	loc       *time.Location
	assets    string
	width     string
	height    string
	sanitizer *bluemonday.Policy
	empty     *template.Template
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	r := &Renderer{
		catalog:   cfg.Catalog,
		loc:       cfg.Location,
		assets:    cfg.AssetsHost,
		width:     cfg.ChartWidth,
		height:    cfg.ChartHeight,
		sanitizer: bluemonday.StrictPolicy(),
		empty:     template.Must(template.New("empty").Parse(emptyPage)),
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.width == "" {
		r.width = DefaultChartWidth
	}
	if r.height == "" {
		r.height = DefaultChartHeight
	}
	return r
}

// PageData holds the input of one page render.
type PageData struct {
	State stats.State
	// Lang is the UI catalog language.
	Lang string
	// Tag drives number grouping.
	Tag language.Tag
}

// Render writes the chart page for data. The page is rendered to a buffer
// first so a failed render does not leave a partial response.
func (r *Renderer) Render(w http.ResponseWriter, data PageData) error {
	buf := new(bytes.Buffer)

	page := r.Page(data)
	if page == nil {
		if err := r.empty.Execute(buf, r.emptyData(data)); err != nil {
			return fmt.Errorf("executing empty page: %w", err)
		}
	} else if err := page.Render(buf); err != nil {
		return fmt.Errorf("rendering chart page: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Page builds the chart page, or returns nil when there is nothing to chart.
func (r *Renderer) Page(data PageData) *components.Page {
	dash := data.State.Dashboard
	if dash == nil || (len(dash.Series) == 0 && len(dash.Rankings) == 0) {
		return nil
	}

	p := printerFor(data.Tag)
	header := r.header(data, p)

	var chartList []components.Charter
	for _, s := range dash.Series {
		chartList = append(chartList, r.seriesChart(data.Lang, s))
	}
	for _, rk := range dash.Rankings {
		chartList = append(chartList, r.rankingChart(data.Lang, rk))
	}

	// The first chart carries the page header.
	switch c := chartList[0].(type) {
	case *charts.Line:
		c.SetGlobalOptions(charts.WithTitleOpts(header))
	case *charts.Bar:
		c.SetGlobalOptions(charts.WithTitleOpts(header))
	}

	page := components.NewPage()
	page.PageTitle = r.catalog.T(data.Lang, "dashboard.title")
	if r.assets != "" {
		page.AssetsHost = r.assets
	}
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(chartList...)
	return page
}

// header builds the title block: range and granularity as title, status
// and totals as subtitle.
func (r *Renderer) header(data PageData, p *message.Printer) opts.Title {
	st := data.State
	dash := st.Dashboard

	title := r.catalog.T(data.Lang, "dashboard.range", dash.Range.Start, dash.Range.End) +
		" (" + r.catalog.T(data.Lang, "granularity."+dash.Granularity.String()) + ")"

	lines := r.statusLines(data)
	if totals := r.totalsLine(data.Lang, dash.Totals, p); totals != "" {
		lines = append(lines, totals)
	}

	return opts.Title{
		Title:      title,
		Subtitle:   strings.Join(lines, "\n"),
		TitleStyle: &opts.TextStyle{Color: chartTextColor},
	}
}

func (r *Renderer) statusLines(data PageData) []string {
	st := data.State
	var lines []string
	if st.Phase == stats.Fetching {
		lines = append(lines, r.catalog.T(data.Lang, "status.fetching"))
	}
	if st.LastError != "" {
		lines = append(lines, r.catalog.T(data.Lang, "status.failed", st.LastError))
	}
	if st.Stale && st.Dashboard != nil {
		fetched := st.Dashboard.FetchedAt.In(r.loc).Format(timeLayout)
		lines = append(lines, r.catalog.T(data.Lang, "status.stale", fetched))
	}
	return lines
}

// totalsLine formats the scalar totals in key order with grouped digits.
func (r *Renderer) totalsLine(lang string, totals map[string]int64, p *message.Printer) string {
	if len(totals) == 0 {
		return ""
	}
	keys := lo.Keys(totals)
	slices.Sort(keys)

	parts := lo.Map(keys, func(k string, _ int) string {
		return r.totalLabel(lang, k) + ": " + p.Sprintf("%d", totals[k])
	})
	return r.catalog.T(lang, "dashboard.totals") + " | " + strings.Join(parts, " | ")
}

func (r *Renderer) totalLabel(lang, key string) string {
	if r.catalog.Has("total." + key) {
		return r.catalog.T(lang, "total."+key)
	}
	return key
}

// SeriesTitle returns the localized title of a named series.
func (r *Renderer) SeriesTitle(lang, name string) string {
	if name == stats.SeriesPageViews {
		return r.catalog.T(lang, "series.page_views")
	}
	event := strings.TrimPrefix(name, stats.SeriesEventPrefix)
	if r.catalog.Has("event." + event) {
		return r.catalog.T(lang, "event."+event)
	}
	return r.catalog.T(lang, "series.event", event)
}

// RankingTitle returns the localized title of a ranking.
func (r *Renderer) RankingTitle(lang, name string) string {
	if r.catalog.Has("ranking." + name) {
		return r.catalog.T(lang, "ranking."+name)
	}
	return name
}

func (r *Renderer) initOpts() opts.Initialization {
	return opts.Initialization{
		Width:           r.width,
		Height:          r.height,
		BackgroundColor: chartBackground,
	}
}

func (r *Renderer) seriesChart(lang string, s stats.NamedSeries) *charts.Line {
	title := r.SeriesTitle(lang, s.Name)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(r.initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			TitleStyle: &opts.TextStyle{Color: chartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{
			Left:   "80",
			Top:    "90",
			Bottom: "60",
		}),
	)

	data := lo.Map(s.Series.Values, func(v float64, _ int) opts.LineData {
		return opts.LineData{Value: v}
	})
	line.SetXAxis(s.Series.Categories).AddSeries(title, data)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)
	return line
}

// rankingChart draws a horizontal bar chart with the top entry at the top.
func (r *Renderer) rankingChart(lang string, rk stats.Ranking) *charts.Bar {
	title := r.RankingTitle(lang, rk.Name)

	entries := slices.Clone(rk.Entries)
	slices.Reverse(entries)

	labels := lo.Map(entries, func(e stats.RankedEntry, _ int) string {
		return r.SanitizeLabel(e.Label)
	})
	data := lo.Map(entries, func(e stats.RankedEntry, _ int) opts.BarData {
		return opts.BarData{Value: e.Value}
	})

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(r.initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			TitleStyle: &opts.TextStyle{Color: chartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{
			Left:   "220",
			Top:    "90",
			Bottom: "40",
		}),
	)

	bar.SetXAxis(labels).
		AddSeries(r.catalog.T(lang, "chart.value"), data).
		XYReversal()
	return bar
}

// SanitizeLabel strips markup from a backend-provided label. The result is
// plain text: chart options carry it as a JSON string, so the entities the
// sanitizer emits are decoded again.
func (r *Renderer) SanitizeLabel(label string) string {
	return strings.TrimSpace(html.UnescapeString(r.sanitizer.Sanitize(label)))
}

type emptyPageData struct {
	Lang    string
	Title   string
	Message string
	Status  []string
	Totals  string
}

func (r *Renderer) emptyData(data PageData) emptyPageData {
	d := emptyPageData{
		Lang:    data.Lang,
		Title:   r.catalog.T(data.Lang, "dashboard.title"),
		Message: r.catalog.T(data.Lang, "dashboard.empty"),
		Status:  r.statusLines(data),
	}
	if data.State.Phase == stats.Idle {
		d.Status = append([]string{r.catalog.T(data.Lang, "status.idle")}, d.Status...)
	}
	if dash := data.State.Dashboard; dash != nil {
		d.Totals = r.totalsLine(data.Lang, dash.Totals, printerFor(data.Tag))
	}
	return d
}

const emptyPage = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{range .Status}}<p>{{.}}</p>
{{end}}{{if .Totals}}<p>{{.Totals}}</p>
{{end}}</body>
</html>
`

func printerFor(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
