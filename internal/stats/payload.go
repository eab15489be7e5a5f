// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Metric names of the stats endpoint payload.
const (
	MetricPageViewsPerHour     = "page_views_per_hour"
	MetricEventsPerNameAndHour = "events_per_name_and_hour"
	MetricQuickSyncsPerHour    = "quick_syncs_per_hour"
	MetricRequestsPerIP        = "requests_per_ip"
	MetricVisitorsPerCountry   = "visitors_per_country"
	MetricReferrers            = "referrers"
	MetricVisitorsPerUTMSource = "visitors_per_utm_source"
	MetricRevenuePerUTMSource  = "revenue_per_utm_source"
	MetricRevenuePerReferrer   = "revenue_per_referrer"
)

// EventQuickSync is the named event older backends report as quick_syncs_per_hour.
const EventQuickSync = "quick_sync"

// NamedTimeSeries is the hourly series of one named event.
type NamedTimeSeries struct {
	Name   string
	Series TimeSeries
}

// Payload is a decoded stats endpoint response.
// Time series keep the key order of the response document.
type Payload struct {
	// Totals holds every top-level scalar count, keyed by metric name.
	Totals map[string]int64

	PageViewsPerHour TimeSeries
	Events           []NamedTimeSeries

	RequestsPerIP        []RankItem
	VisitorsPerCountry   []RankItem
	Referrers            []RankItem
	VisitorsPerUTMSource []RankItem
	RevenuePerUTMSource  []RankItem
	RevenuePerReferrer   []RankItem

	present map[string]bool
}

// Has reports whether the payload carried the metric family.
func (p *Payload) Has(metric string) bool {
	return p != nil && p.present[metric]
}

// Event returns the series of a named event, or ErrMissingMetric.
func (p *Payload) Event(name string) (TimeSeries, error) {
	if p != nil {
		for _, ev := range p.Events {
			if ev.Name == name {
				return ev.Series, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: event %q", ErrMissingMetric, name)
}

// DecodePayload decodes a stats endpoint response.
// A document that is not a JSON object, or a metric family with an unexpected
// shape, yields ErrMalformedResponse. Absent or null families are left empty.
func DecodePayload(data []byte) (*Payload, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedResponse)
	}

	p := &Payload{
		Totals:  make(map[string]int64),
		present: make(map[string]bool),
	}

	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if value.Type == gjson.Null {
			return true
		}
		switch name {
		case MetricPageViewsPerHour:
			p.PageViewsPerHour, err = decodeTimeSeries(name, value)
		case MetricEventsPerNameAndHour:
			err = p.decodeEvents(value)
		case MetricQuickSyncsPerHour:
			var ts TimeSeries
			if ts, err = decodeTimeSeries(name, value); err == nil {
				p.addLegacyQuickSyncs(ts)
			}
		case MetricRequestsPerIP:
			p.RequestsPerIP, err = decodeRanking(name, value, "ip")
		case MetricVisitorsPerCountry:
			p.VisitorsPerCountry, err = decodeRanking(name, value, "country")
		case MetricReferrers:
			p.Referrers, err = decodeRanking(name, value, "referrer")
		case MetricVisitorsPerUTMSource:
			p.VisitorsPerUTMSource, err = decodeRanking(name, value, "source")
		case MetricRevenuePerUTMSource:
			p.RevenuePerUTMSource, err = decodeRanking(name, value, "source")
		case MetricRevenuePerReferrer:
			p.RevenuePerReferrer, err = decodeRanking(name, value, "referrer")
		default:
			if value.Type == gjson.Number {
				p.Totals[name] = value.Int()
			}
			return true
		}
		p.present[name] = true
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Payload) decodeEvents(value gjson.Result) error {
	if !value.IsObject() {
		return fmt.Errorf("%w: %s must be an object", ErrMalformedResponse, MetricEventsPerNameAndHour)
	}
	var err error
	value.ForEach(func(key, series gjson.Result) bool {
		var ts TimeSeries
		ts, err = decodeTimeSeries(MetricEventsPerNameAndHour+"."+key.String(), series)
		if err != nil {
			return false
		}
		p.setEvent(key.String(), ts)
		return true
	})
	return err
}

// addLegacyQuickSyncs records quick_syncs_per_hour unless the named event map
// already carries quick_sync.
func (p *Payload) addLegacyQuickSyncs(ts TimeSeries) {
	if _, err := p.Event(EventQuickSync); err == nil {
		return
	}
	p.Events = append(p.Events, NamedTimeSeries{Name: EventQuickSync, Series: ts})
}

func (p *Payload) setEvent(name string, ts TimeSeries) {
	for i := range p.Events {
		if p.Events[i].Name == name {
			p.Events[i].Series = ts
			return
		}
	}
	p.Events = append(p.Events, NamedTimeSeries{Name: name, Series: ts})
}

// decodeTimeSeries decodes {"YYYY-MM-DD HH": count, ...} keeping key order.
// Null counts are skipped. Keys are not validated here.
func decodeTimeSeries(name string, value gjson.Result) (TimeSeries, error) {
	if value.Type == gjson.Null {
		return nil, nil
	}
	if !value.IsObject() {
		return nil, fmt.Errorf("%w: %s must be an object", ErrMalformedResponse, name)
	}
	ts := TimeSeries{}
	var err error
	value.ForEach(func(key, count gjson.Result) bool {
		switch count.Type {
		case gjson.Null:
			return true
		case gjson.Number:
			ts = append(ts, BucketCount{Key: key.String(), Count: count.Int()})
			return true
		default:
			err = fmt.Errorf("%w: %s[%q] is not a number", ErrMalformedResponse, name, key.String())
			return false
		}
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// decodeRanking accepts either a {label: value} object or an array of records
// such as {"ip": "1.1.1.1", "country": "US", "count": 5}. Records name their
// label by labelField; "count" or "value" carries the number.
func decodeRanking(name string, value gjson.Result, labelField string) ([]RankItem, error) {
	items := []RankItem{}
	var err error
	switch {
	case value.IsObject():
		value.ForEach(func(key, v gjson.Result) bool {
			switch v.Type {
			case gjson.Null:
				return true
			case gjson.Number:
				items = append(items, RankItem{Key: key.String(), Value: v.Float()})
				return true
			default:
				err = fmt.Errorf("%w: %s[%q] is not a number", ErrMalformedResponse, name, key.String())
				return false
			}
		})
	case value.IsArray():
		value.ForEach(func(_, rec gjson.Result) bool {
			if !rec.IsObject() {
				err = fmt.Errorf("%w: %s entries must be objects", ErrMalformedResponse, name)
				return false
			}
			v := rec.Get("count")
			if !v.Exists() {
				v = rec.Get("value")
			}
			if v.Type != gjson.Number {
				err = fmt.Errorf("%w: %s entry without a numeric count", ErrMalformedResponse, name)
				return false
			}
			items = append(items, RankItem{
				Key:     rec.Get(labelField).String(),
				Country: rec.Get("country").String(),
				Value:   v.Float(),
			})
			return true
		})
	default:
		return nil, fmt.Errorf("%w: %s must be an object or an array", ErrMalformedResponse, name)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
