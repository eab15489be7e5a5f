// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"fmt"
	"strings"
)

// Granularity is the display resolution applied to time-bucketed metrics.
type Granularity int

const (
	Hourly Granularity = iota
	Daily
)

// ParseGranularity parses "hourly"/"hour" or "daily"/"day" (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly", "hour":
		return Hourly, nil
	case "daily", "day":
		return Daily, nil
	default:
		return Hourly, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

func (g Granularity) String() string {
	if g == Daily {
		return "daily"
	}
	return "hourly"
}

// MarshalText implements encoding.TextMarshaler.
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
