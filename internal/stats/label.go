// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// RankingKind selects how ranked entries are labeled.
type RankingKind int

const (
	PlainRanking RankingKind = iota
	IPRanking
	CountryRanking
)

func (k RankingKind) String() string {
	switch k {
	case IPRanking:
		return "ip"
	case CountryRanking:
		return "country"
	default:
		return "plain"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RankingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// regionalIndicatorOffset maps 'A'..'Z' to U+1F1E6..U+1F1FF.
const regionalIndicatorOffset = 127397

// Flag returns the flag emoji for a two-letter ISO 3166 country code.
// Returns an empty string if code is not exactly two ASCII letters.
func Flag(code string) string {
	if len(code) != 2 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < 2; i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return ""
		}
		sb.WriteRune(rune(c) + regionalIndicatorOffset)
	}
	return sb.String()
}

// LabelFormatter renders human labels for ranked entries.
type LabelFormatter struct {
	regions display.Namer
}

// NewLabelFormatter creates a formatter whose country names are localized for tag.
func NewLabelFormatter(tag language.Tag) *LabelFormatter {
	return &LabelFormatter{regions: display.Regions(tag)}
}

// Label returns the display label of item for the given ranking kind.
func (f *LabelFormatter) Label(kind RankingKind, item RankItem) string {
	switch kind {
	case IPRanking:
		return withFlag(item.Key, item.Country)
	case CountryRanking:
		return withFlag(f.CountryName(item.Key), item.Key)
	default:
		return item.Key
	}
}

// CountryName returns the localized name of a region code, or the code itself
// when the region is unknown to the display tables.
func (f *LabelFormatter) CountryName(code string) string {
	if f == nil || f.regions == nil {
		return code
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := f.regions.Name(region); name != "" {
		return name
	}
	return code
}

// Rank ranks items and labels the top n entries.
func (f *LabelFormatter) Rank(kind RankingKind, items []RankItem, n int) []RankedEntry {
	top := TopN(items, n)
	entries := make([]RankedEntry, len(top))
	for i, item := range top {
		entries[i] = RankedEntry{Label: f.Label(kind, item), Value: item.Value}
	}
	return entries
}

func withFlag(label, code string) string {
	flag := Flag(code)
	if flag == "" {
		return label
	}
	return label + " - " + flag
}
