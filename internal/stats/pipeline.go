// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
)

// Fetcher retrieves a raw stats payload for a date range.
type Fetcher interface {
	Fetch(ctx context.Context, r DateRange) ([]byte, error)
}

// CountryResolver resolves an IP address to a two-letter country code.
// It returns an empty string when the country is unknown.
type CountryResolver interface {
	LookupCountry(ip string) string
}

// SnapshotSaver persists successfully decoded payloads.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, r DateRange, payload []byte, fetchedAt time.Time) error
}

// Options configures a Pipeline.
type Options struct {
	Location           *time.Location
	Locale             language.Tag
	Granularity        Granularity
	TopN               int
	LocalDayBoundaries bool

	// TrackedEvents lists the named events charted as series, in order.
	// Empty means every event of the payload, in payload order.
	TrackedEvents []string

	Countries CountryResolver
	Snapshots SnapshotSaver

	// OnUpdate is called with a fresh snapshot after every state change.
	// It is called without the pipeline lock held. Calls are serialized and
	// a snapshot older than one already delivered is dropped.
	OnUpdate func(State)

	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline turns raw stats payloads into dashboard series and rankings.
// It owns the dashboard state: the selected granularity, the current date
// range and the last payload.
type Pipeline struct {
	fetcher Fetcher
	opts    Options
	labels  *LabelFormatter
	logger  *slog.Logger

	mu          sync.Mutex
	seq         uint64
	phase       Phase
	rng         DateRange
	granularity Granularity
	payload     *Payload
	payloadRng  DateRange
	fetchedAt   time.Time
	rankings    []Ranking
	dashboard   *Dashboard
	stale       bool
	lastErr     error
	failedAt    time.Time
	updatedAt   time.Time
	rev         uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// NewPipeline creates a pipeline in the Idle phase.
func NewPipeline(fetcher Fetcher, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:     fetcher,
		opts:        opts,
		labels:      NewLabelFormatter(opts.Locale),
		logger:      logger,
		granularity: opts.Granularity,
	}
}

// Load fetches the stats for [start, end] and derives a new dashboard.
// Empty start and end select the default range (yesterday and today).
//
// If a newer Load starts before this one completes, the result is discarded
// and ErrSuperseded is returned. Fetch and decode failures move the pipeline
// to Failed while keeping the previous dashboard.
func (p *Pipeline) Load(ctx context.Context, start, end string) (State, error) {
	rng, err := p.resolveRange(start, end)
	if err != nil {
		return p.State(), err
	}
	return p.load(ctx, rng)
}

// Refresh reloads the current range, bypassing any payload cache.
func (p *Pipeline) Refresh(ctx context.Context) (State, error) {
	p.mu.Lock()
	rng := p.rng
	p.mu.Unlock()
	if rng.IsZero() {
		rng = DefaultRange(p.opts.Now(), p.opts.Location)
	}
	return p.load(WithForceRefresh(ctx), rng)
}

// SetGranularity switches the time series resolution. The held payload is
// re-aggregated without a refetch; rankings are left untouched. Setting the
// current granularity again is a no-op.
func (p *Pipeline) SetGranularity(g Granularity) State {
	p.mu.Lock()
	if g == p.granularity {
		st := p.stateLocked()
		p.mu.Unlock()
		return st
	}
	p.granularity = g
	if p.payload != nil {
		p.dashboard = p.deriveLocked()
	}
	p.updatedAt = p.opts.Now()
	p.rev++
	st := p.stateLocked()
	p.mu.Unlock()

	p.logger.Debug("granularity changed", "granularity", g)
	p.notify(st)
	return st
}

// Granularity returns the current granularity.
func (p *Pipeline) Granularity() Granularity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granularity
}

// State returns a snapshot of the pipeline.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Restore seeds the pipeline with a previously persisted payload. The
// restored dashboard is marked stale. Restore does nothing once a load has
// been issued.
func (p *Pipeline) Restore(rng DateRange, data []byte, fetchedAt time.Time) error {
	payload, err := DecodePayload(data)
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	p.mu.Lock()
	if p.seq > 0 {
		p.mu.Unlock()
		return nil
	}
	p.rng = rng
	p.setPayloadLocked(rng, payload, fetchedAt)
	p.phase = Ready
	p.stale = true
	p.updatedAt = p.opts.Now()
	p.rev++
	st := p.stateLocked()
	p.mu.Unlock()

	p.logger.Info("restored stats snapshot", "range", rng.String(), "fetched_at", fetchedAt)
	p.notify(st)
	return nil
}

func (p *Pipeline) resolveRange(start, end string) (DateRange, error) {
	if start == "" && end == "" {
		return DefaultRange(p.opts.Now(), p.opts.Location), nil
	}
	def := DefaultRange(p.opts.Now(), p.opts.Location)
	if start == "" {
		start = def.Start
	}
	if end == "" {
		end = def.End
	}
	return NewDateRange(start, end)
}

func (p *Pipeline) load(ctx context.Context, rng DateRange) (State, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.rng = rng
	p.phase = Fetching
	p.updatedAt = p.opts.Now()
	p.rev++
	st := p.stateLocked()
	p.mu.Unlock()

	p.logger.Debug("loading stats", "seq", seq, "range", rng.String())
	p.notify(st)

	data, err := p.fetcher.Fetch(ctx, rng)
	var payload *Payload
	if err == nil {
		payload, err = DecodePayload(data)
	}
	now := p.opts.Now()

	p.mu.Lock()
	if seq != p.seq {
		latest := p.seq
		st = p.stateLocked()
		p.mu.Unlock()
		p.logger.Debug("discarding superseded stats response", "seq", seq, "latest", latest)
		return st, fmt.Errorf("%w: request %d, latest %d", ErrSuperseded, seq, latest)
	}

	if err != nil {
		p.phase = Failed
		p.lastErr = err
		p.failedAt = now
		p.stale = p.dashboard != nil
		p.updatedAt = now
		p.rev++
		st = p.stateLocked()
		p.mu.Unlock()

		p.logger.Warn("stats load failed", "seq", seq, "range", rng.String(), "kind", errorKind(err), "error", err)
		p.notify(st)
		return st, err
	}

	p.setPayloadLocked(rng, payload, now)
	p.phase = Ready
	p.lastErr = nil
	p.stale = false
	p.updatedAt = now
	p.rev++
	st = p.stateLocked()
	p.mu.Unlock()

	p.logger.Info("stats loaded", "seq", seq, "range", rng.String(),
		"series", len(st.Dashboard.Series), "rankings", len(st.Dashboard.Rankings))

	if p.opts.Snapshots != nil {
		if err := p.opts.Snapshots.SaveSnapshot(ctx, rng, data, now); err != nil {
			p.logger.Warn("failed to save stats snapshot", "range", rng.String(), "error", err)
		}
	}

	p.notify(st)
	return st, nil
}

// setPayloadLocked installs a payload and derives rankings and series.
// Caller must hold p.mu.
func (p *Pipeline) setPayloadLocked(rng DateRange, payload *Payload, fetchedAt time.Time) {
	p.payload = payload
	p.payloadRng = rng
	p.fetchedAt = fetchedAt
	p.rankings = p.buildRankings(payload)
	p.dashboard = p.deriveLocked()
}

// deriveLocked builds a new dashboard from the held payload and rankings.
// Caller must hold p.mu.
func (p *Pipeline) deriveLocked() *Dashboard {
	return &Dashboard{
		Range:       p.payloadRng,
		Granularity: p.granularity,
		Totals:      p.payload.Totals,
		Series:      p.buildSeries(p.payload, p.granularity),
		Rankings:    p.rankings,
		FetchedAt:   p.fetchedAt,
	}
}

func (p *Pipeline) stateLocked() State {
	st := State{
		Phase:         p.phase,
		Seq:           p.seq,
		Range:         p.rng,
		Granularity:   p.granularity,
		Dashboard:     p.dashboard,
		Stale:         p.stale,
		LastErrorKind: errorKind(p.lastErr),
		UpdatedAt:     p.updatedAt,
		rev:           p.rev,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
		failedAt := p.failedAt
		st.FailedAt = &failedAt
	}
	return st
}

func (p *Pipeline) buildSeries(payload *Payload, g Granularity) []NamedSeries {
	agg := Aggregator{
		Location:           p.opts.Location,
		LocalDayBoundaries: p.opts.LocalDayBoundaries,
		Logger:             p.logger,
	}

	var out []NamedSeries
	add := func(name string, ts TimeSeries) {
		cs := agg.Aggregate(ts, g)
		if cs.Len() == 0 {
			return
		}
		out = append(out, NamedSeries{Name: name, Series: cs})
	}

	if payload.Has(MetricPageViewsPerHour) {
		add(SeriesPageViews, payload.PageViewsPerHour)
	}
	for _, name := range p.eventNames(payload) {
		ts, err := payload.Event(name)
		if err != nil {
			p.logger.Debug("event series not in payload", "event", name)
			continue
		}
		add(SeriesEventPrefix+name, ts)
	}
	return out
}

func (p *Pipeline) eventNames(payload *Payload) []string {
	if len(p.opts.TrackedEvents) > 0 {
		return p.opts.TrackedEvents
	}
	return lo.Map(payload.Events, func(ev NamedTimeSeries, _ int) string {
		return ev.Name
	})
}

// rankingSpecs lists the ranked metric families in display order.
var rankingSpecs = []struct {
	metric string
	kind   RankingKind
	items  func(*Payload) []RankItem
}{
	{MetricRequestsPerIP, IPRanking, func(p *Payload) []RankItem { return p.RequestsPerIP }},
	{MetricVisitorsPerCountry, CountryRanking, func(p *Payload) []RankItem { return p.VisitorsPerCountry }},
	{MetricReferrers, PlainRanking, func(p *Payload) []RankItem { return p.Referrers }},
	{MetricVisitorsPerUTMSource, PlainRanking, func(p *Payload) []RankItem { return p.VisitorsPerUTMSource }},
	{MetricRevenuePerUTMSource, PlainRanking, func(p *Payload) []RankItem { return p.RevenuePerUTMSource }},
	{MetricRevenuePerReferrer, PlainRanking, func(p *Payload) []RankItem { return p.RevenuePerReferrer }},
}

func (p *Pipeline) buildRankings(payload *Payload) []Ranking {
	var out []Ranking
	for _, spec := range rankingSpecs {
		if !payload.Has(spec.metric) {
			continue
		}
		items := spec.items(payload)
		if len(items) == 0 {
			continue
		}
		if spec.kind == IPRanking {
			items = p.resolveCountries(items)
		}
		out = append(out, Ranking{
			Name:    spec.metric,
			Kind:    spec.kind,
			Entries: p.labels.Rank(spec.kind, items, p.opts.TopN),
		})
	}
	return out
}

// resolveCountries fills missing IP countries from the country resolver.
func (p *Pipeline) resolveCountries(items []RankItem) []RankItem {
	if p.opts.Countries == nil {
		return items
	}
	resolved := slices.Clone(items)
	for i := range resolved {
		if resolved[i].Country == "" {
			resolved[i].Country = p.opts.Countries.LookupCountry(resolved[i].Key)
		}
	}
	return resolved
}

func (p *Pipeline) notify(st State) {
	if p.opts.OnUpdate == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if st.rev <= p.delivered {
		return
	}
	p.delivered = st.rev
	p.opts.OnUpdate(st)
}
