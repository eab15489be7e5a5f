// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"log/slog"
	"time"
)

// Aggregator re-buckets time series for the selected granularity.
type Aggregator struct {
	// Location is the viewer's timezone. Nil means UTC.
	Location *time.Location

	// LocalDayBoundaries groups daily buckets by the local calendar date.
	// When false, daily buckets use the UTC date prefix of the key, which is
	// what the stats backend has always been paired with.
	LocalDayBoundaries bool

	Logger *slog.Logger
}

// Aggregate converts a time series into a chart series.
//
// Hourly mode yields one point per key, labeled with the two-digit local hour,
// in payload order. Daily mode sums counts per date, in first-seen order.
// Malformed keys are skipped.
func (a Aggregator) Aggregate(ts TimeSeries, g Granularity) ChartSeries {
	if g == Daily {
		return a.daily(ts)
	}
	return a.hourly(ts)
}

func (a Aggregator) hourly(ts TimeSeries) ChartSeries {
	out := ChartSeries{
		Categories: make([]string, 0, len(ts)),
		Values:     make([]float64, 0, len(ts)),
	}
	for _, bc := range ts {
		label, err := HourLabel(bc.Key, a.Location)
		if err != nil {
			a.skip(bc.Key, err)
			continue
		}
		out.Categories = append(out.Categories, label)
		out.Values = append(out.Values, float64(bc.Count))
	}
	return out
}

func (a Aggregator) daily(ts TimeSeries) ChartSeries {
	out := ChartSeries{
		Categories: []string{},
		Values:     []float64{},
	}
	index := make(map[string]int)
	for _, bc := range ts {
		date, err := a.dateOf(bc.Key)
		if err != nil {
			a.skip(bc.Key, err)
			continue
		}
		i, seen := index[date]
		if !seen {
			index[date] = len(out.Categories)
			out.Categories = append(out.Categories, date)
			out.Values = append(out.Values, float64(bc.Count))
			continue
		}
		out.Values[i] += float64(bc.Count)
	}
	return out
}

func (a Aggregator) dateOf(key string) (string, error) {
	if a.LocalDayBoundaries {
		return LocalDate(key, a.Location)
	}
	return DatePrefix(key)
}

func (a Aggregator) skip(key string, err error) {
	if a.Logger != nil {
		a.Logger.Debug("skipping time bucket", "key", key, "error", err)
	}
}
