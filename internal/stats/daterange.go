// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of calendar dates in "YYYY-MM-DD" form.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewDateRange validates start and end. End must not be before start.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start %q", ErrInvalidRange, start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end %q", ErrInvalidRange, end)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	return DateRange{Start: start, End: end}, nil
}

// DefaultRange returns [yesterday, today] in the local date of now in loc.
func DefaultRange(now time.Time, loc *time.Location) DateRange {
	if loc != nil {
		now = now.In(loc)
	}
	return DateRange{
		Start: now.AddDate(0, 0, -1).Format(DateLayout),
		End:   now.Format(DateLayout),
	}
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

func (r DateRange) String() string {
	return r.Start + ".." + r.End
}
