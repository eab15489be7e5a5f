// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"cmp"
	"slices"
)

// DefaultTopN is the number of entries kept by a ranking.
const DefaultTopN = 10

// TopN returns the n highest items by value, descending.
// Items with equal values keep their input order. The input is not modified.
// A non-positive n means DefaultTopN.
func TopN(items []RankItem, n int) []RankItem {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b RankItem) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
