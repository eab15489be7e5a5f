// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopN_TruncatesAndSortsDescending(t *testing.T) {
	var items []RankItem
	for i := range 25 {
		items = append(items, RankItem{Key: fmt.Sprintf("item-%02d", i), Value: float64(i % 7)})
	}

	got := TopN(items, 10)

	assert.Len(t, got, 10)
	assert.True(t, slices.IsSortedFunc(got, func(a, b RankItem) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	}))
}

func TestTopN_StableOnTies(t *testing.T) {
	items := []RankItem{
		{Key: "a", Value: 1},
		{Key: "b", Value: 5},
		{Key: "c", Value: 1},
		{Key: "d", Value: 5},
		{Key: "e", Value: 3},
	}

	got := TopN(items, 10)

	keys := make([]string, len(got))
	for i, it := range got {
		keys[i] = it.Key
	}
	assert.Equal(t, []string{"b", "d", "e", "a", "c"}, keys)
}

func TestTopN_SmallInputAndDefault(t *testing.T) {
	items := []RankItem{{Key: "only", Value: 1}}
	assert.Equal(t, items, TopN(items, 10))
	assert.Empty(t, TopN(nil, 10))

	var many []RankItem
	for i := range 15 {
		many = append(many, RankItem{Key: fmt.Sprint(i), Value: 1})
	}
	assert.Len(t, TopN(many, 0), DefaultTopN)
}

func TestTopN_DoesNotMutateInput(t *testing.T) {
	items := []RankItem{
		{Key: "low", Value: 1},
		{Key: "high", Value: 9},
		{Key: "mid", Value: 5},
	}
	original := slices.Clone(items)

	_ = TopN(items, 2)

	assert.Equal(t, original, items)
}
