// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_KeepsKeyOrder(t *testing.T) {
	data := []byte(`{
		"page_views_per_hour": {"2024-01-01 05": 1, "2024-01-01 01": 2, "2024-01-01 03": 3}
	}`)

	p, err := DecodePayload(data)
	require.NoError(t, err)

	assert.True(t, p.Has(MetricPageViewsPerHour))
	assert.Equal(t, TimeSeries{
		{Key: "2024-01-01 05", Count: 1},
		{Key: "2024-01-01 01", Count: 2},
		{Key: "2024-01-01 03", Count: 3},
	}, p.PageViewsPerHour)
}

func TestDecodePayload_Events(t *testing.T) {
	data := []byte(`{
		"events_per_name_and_hour": {
			"account_created": {"2024-01-01 00": 1},
			"quick_sync": {"2024-01-01 00": 4, "2024-01-01 01": null}
		}
	}`)

	p, err := DecodePayload(data)
	require.NoError(t, err)

	require.Len(t, p.Events, 2)
	assert.Equal(t, "account_created", p.Events[0].Name)
	assert.Equal(t, "quick_sync", p.Events[1].Name)

	ts, err := p.Event(EventQuickSync)
	require.NoError(t, err)
	assert.Equal(t, TimeSeries{{Key: "2024-01-01 00", Count: 4}}, ts)

	_, err = p.Event("signup")
	assert.ErrorIs(t, err, ErrMissingMetric)
}

func TestDecodePayload_LegacyQuickSyncs(t *testing.T) {
	p, err := DecodePayload([]byte(`{"quick_syncs_per_hour": {"2024-01-01 00": 7}}`))
	require.NoError(t, err)

	ts, err := p.Event(EventQuickSync)
	require.NoError(t, err)
	assert.Equal(t, TimeSeries{{Key: "2024-01-01 00", Count: 7}}, ts)
}

func TestDecodePayload_NamedEventOverridesLegacy(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "legacy first",
			data: `{"quick_syncs_per_hour": {"2024-01-01 00": 7},
				"events_per_name_and_hour": {"quick_sync": {"2024-01-01 00": 9}}}`,
		},
		{
			name: "named first",
			data: `{"events_per_name_and_hour": {"quick_sync": {"2024-01-01 00": 9}},
				"quick_syncs_per_hour": {"2024-01-01 00": 7}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.data))
			require.NoError(t, err)

			require.Len(t, p.Events, 1)
			assert.Equal(t, TimeSeries{{Key: "2024-01-01 00", Count: 9}}, p.Events[0].Series)
		})
	}
}

func TestDecodePayload_Rankings(t *testing.T) {
	data := []byte(`{
		"requests_per_ip": [
			{"ip": "1.1.1.1", "country": "US", "count": 50},
			{"ip": "2.2.2.2", "country": "DE", "count": 50}
		],
		"visitors_per_country": {"DE": 12, "US": 30},
		"referrers": [{"referrer": "example.com", "value": 3}],
		"revenue_per_utm_source": {"newsletter": 12.5}
	}`)

	p, err := DecodePayload(data)
	require.NoError(t, err)

	assert.Equal(t, []RankItem{
		{Key: "1.1.1.1", Country: "US", Value: 50},
		{Key: "2.2.2.2", Country: "DE", Value: 50},
	}, p.RequestsPerIP)
	assert.Equal(t, []RankItem{{Key: "DE", Value: 12}, {Key: "US", Value: 30}}, p.VisitorsPerCountry)
	assert.Equal(t, []RankItem{{Key: "example.com", Value: 3}}, p.Referrers)
	assert.Equal(t, []RankItem{{Key: "newsletter", Value: 12.5}}, p.RevenuePerUTMSource)
	assert.False(t, p.Has(MetricVisitorsPerUTMSource))
}

func TestDecodePayload_Totals(t *testing.T) {
	p, err := DecodePayload([]byte(`{"visitors": 42, "page_views": 100, "note": "x", "referrers": {}}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"visitors": 42, "page_views": 100}, p.Totals)
	assert.True(t, p.Has(MetricReferrers))
	assert.Empty(t, p.Referrers)
}

func TestDecodePayload_NullFamilyIsAbsent(t *testing.T) {
	p, err := DecodePayload([]byte(`{"page_views_per_hour": null, "requests_per_ip": null}`))
	require.NoError(t, err)

	assert.False(t, p.Has(MetricPageViewsPerHour))
	assert.False(t, p.Has(MetricRequestsPerIP))
}

func TestDecodePayload_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"invalid json", `{"page_views_per_hour": `},
		{"array root", `[1, 2]`},
		{"string root", `"hello"`},
		{"series not object", `{"page_views_per_hour": [1, 2]}`},
		{"series count not number", `{"page_views_per_hour": {"2024-01-01 00": "many"}}`},
		{"events not object", `{"events_per_name_and_hour": 3}`},
		{"event series not object", `{"events_per_name_and_hour": {"quick_sync": true}}`},
		{"ranking scalar", `{"requests_per_ip": 5}`},
		{"ranking record not object", `{"requests_per_ip": [5]}`},
		{"ranking record without count", `{"requests_per_ip": [{"ip": "1.1.1.1"}]}`},
		{"ranking value not number", `{"referrers": {"a": "b"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, p)
		})
	}
}
