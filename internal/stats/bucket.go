// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"fmt"
	"time"
)

// BucketKeyLayout is the layout of backend time bucket keys, a UTC wall-clock hour.
const BucketKeyLayout = "2006-01-02 15"

// DateLayout is the layout of calendar dates used for daily buckets and date ranges.
const DateLayout = "2006-01-02"

// ParseBucketKey parses a "YYYY-MM-DD HH" key as a UTC hour and returns it in loc.
// A nil loc means UTC.
func ParseBucketKey(key string, loc *time.Location) (time.Time, error) {
	if len(key) != len(BucketKeyLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedBucketKey, key)
	}
	t, err := time.ParseInLocation(BucketKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedBucketKey, key)
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc), nil
}

// HourLabel returns the two-digit local hour of day for a bucket key.
func HourLabel(key string, loc *time.Location) (string, error) {
	t, err := ParseBucketKey(key, loc)
	if err != nil {
		return "", err
	}
	return t.Format("15"), nil
}

// DatePrefix returns the UTC calendar date of a bucket key.
// The date is taken from the key itself, without timezone conversion.
func DatePrefix(key string) (string, error) {
	if _, err := ParseBucketKey(key, time.UTC); err != nil {
		return "", err
	}
	return key[:len(DateLayout)], nil
}

// LocalDate returns the calendar date of a bucket key in loc.
func LocalDate(key string, loc *time.Location) (string, error) {
	t, err := ParseBucketKey(key, loc)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}
