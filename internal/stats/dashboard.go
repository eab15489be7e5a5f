// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"errors"
	"time"
)

// Series names produced by the pipeline.
const (
	SeriesPageViews   = "page_views"
	SeriesEventPrefix = "events."
)

// NamedSeries is a time-bucketed chart series.
type NamedSeries struct {
	Name   string      `json:"name"`
	Series ChartSeries `json:"series"`
}

// Ranking is a labeled top-N breakdown of one metric.
type Ranking struct {
	Name    string        `json:"name"`
	Kind    RankingKind   `json:"kind"`
	Entries []RankedEntry `json:"entries"`
}

// Dashboard is the derived, read-only view of one payload.
type Dashboard struct {
	Range       DateRange        `json:"range"`
	Granularity Granularity      `json:"granularity"`
	Totals      map[string]int64 `json:"totals"`
	Series      []NamedSeries    `json:"series"`
	Rankings    []Ranking        `json:"rankings"`
	FetchedAt   time.Time        `json:"fetched_at"`
}

// SeriesByName returns the named series and whether it was produced.
func (d *Dashboard) SeriesByName(name string) (ChartSeries, bool) {
	if d == nil {
		return ChartSeries{}, false
	}
	for _, s := range d.Series {
		if s.Name == name {
			return s.Series, true
		}
	}
	return ChartSeries{}, false
}

// RankingByName returns the named ranking and whether it was produced.
func (d *Dashboard) RankingByName(name string) (Ranking, bool) {
	if d == nil {
		return Ranking{}, false
	}
	for _, r := range d.Rankings {
		if r.Name == name {
			return r, true
		}
	}
	return Ranking{}, false
}

// Phase is the fetch cycle state of a pipeline.
type Phase int

const (
	Idle Phase = iota
	Fetching
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Fetching:
		return "fetching"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of a pipeline.
type State struct {
	Phase       Phase       `json:"phase"`
	Seq         uint64      `json:"seq"`
	Range       DateRange   `json:"range"`
	Granularity Granularity `json:"granularity"`

	// Dashboard is the last successfully derived view. It is kept while a
	// newer fetch is in flight or after it failed.
	Dashboard *Dashboard `json:"dashboard,omitempty"`

	// Stale is set when Dashboard does not belong to the latest fetch:
	// restored from a snapshot, or kept after a failure.
	Stale bool `json:"stale"`

	LastError     string     `json:"last_error,omitempty"`
	LastErrorKind string     `json:"last_error_kind,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// rev orders snapshots for OnUpdate delivery.
	rev uint64
}

// errorKind classifies a load failure for the error surface.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrNetworkFailure):
		return "network_failure"
	default:
		return "error"
	}
}
