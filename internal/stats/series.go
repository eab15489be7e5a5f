// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import "slices"

// BucketCount is a single time bucket counter from the payload.
type BucketCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// TimeSeries is an ordered list of bucket counters, in payload order.
type TimeSeries []BucketCount

// ChartSeries holds parallel category labels and values ready for rendering.
type ChartSeries struct {
	Categories []string  `json:"categories"`
	Values     []float64 `json:"values"`
}

// Len returns the number of points in the series.
func (s ChartSeries) Len() int {
	return len(s.Categories)
}

// Clone returns a deep copy of the series.
func (s ChartSeries) Clone() ChartSeries {
	return ChartSeries{
		Categories: slices.Clone(s.Categories),
		Values:     slices.Clone(s.Values),
	}
}

// RankedEntry is a labeled value of a top-N ranking.
type RankedEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RankItem is an unranked (label, value) pair as decoded from the payload.
// Country is only set for IP records.
type RankItem struct {
	Key     string  `json:"key"`
	Country string  `json:"country,omitempty"`
	Value   float64 `json:"value"`
}
