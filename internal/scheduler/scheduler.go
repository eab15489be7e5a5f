// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic dashboard refresh and maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/statsdash/internal/stats"
)

// Job names.
const (
	JobRefresh     = "refresh"
	JobGeoIPReload = "geoip_reload"
	JobPruneStore  = "prune_store"
)

// Default schedules of the maintenance jobs.
const (
	GeoIPReloadSchedule = "@daily"
	PruneSchedule       = "@hourly"
	jobTimeout          = 2 * time.Minute
)

// Refresher reloads the dashboard.
type Refresher interface {
	Refresh(ctx context.Context) (stats.State, error)
}

// Reloader reloads an on-disk database.
type Reloader interface {
	Reload() error
}

// Pruner trims persisted snapshots and event log entries.
type Pruner interface {
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
	DeleteEventsBefore(ctx context.Context, t time.Time) (int64, error)
}

// Jobs selects the jobs to run. Nil dependencies and empty schedules
// disable the corresponding job.
type Jobs struct {
	Refresher       Refresher
	RefreshSchedule string

	GeoIP Reloader

	Store          Pruner
	KeepSnapshots  int
	EventRetention time.Duration
}

// JobInfo describes a scheduled job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
}

// Scheduler wraps a cron instance running the configured jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]scheduledEntry
}

type scheduledEntry struct {
	id       cron.EntryID
	schedule string
}

// New creates a scheduler evaluating schedules in loc.
func New(jobs Jobs, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    jobs,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]scheduledEntry),
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.jobs.Refresher != nil && s.jobs.RefreshSchedule != "" {
		if err := s.add(JobRefresh, s.jobs.RefreshSchedule, s.refresh); err != nil {
			return err
		}
	}
	if s.jobs.GeoIP != nil {
		if err := s.add(JobGeoIPReload, GeoIPReloadSchedule, s.reloadGeoIP); err != nil {
			return err
		}
	}
	if s.jobs.Store != nil {
		if err := s.add(JobPruneStore, PruneSchedule, s.prune); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Jobs lists the registered jobs with their next run times.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, name := range []string{JobRefresh, JobGeoIPReload, JobPruneStore} {
		e, ok := s.entries[name]
		if !ok {
			continue
		}
		entry := s.cron.Entry(e.id)
		infos = append(infos, JobInfo{
			Name:     name,
			Schedule: e.schedule,
			Next:     entry.Next,
			Prev:     entry.Prev,
		})
	}
	return infos
}

// Run executes a registered job immediately.
func (s *Scheduler) Run(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.cron.Entry(e.id).WrappedJob.Run()
	return nil
}

func (s *Scheduler) add(name, schedule string, fn func()) error {
	id, err := s.cron.AddFunc(schedule, fn)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}
	s.mu.Lock()
	s.entries[name] = scheduledEntry{id: id, schedule: schedule}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	st, err := s.jobs.Refresher.Refresh(ctx)
	switch {
	case errors.Is(err, stats.ErrSuperseded):
		s.logger.Debug("scheduled refresh superseded", "seq", st.Seq)
	case err != nil:
		s.logger.Warn("scheduled refresh job failed", "error", err, "range", st.Range.String())
	default:
		s.logger.Debug("scheduled refresh done", "seq", st.Seq, "range", st.Range.String())
	}
}

func (s *Scheduler) reloadGeoIP() {
	if err := s.jobs.GeoIP.Reload(); err != nil {
		s.logger.Warn("GeoIP reload failed", "error", err)
	}
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if s.jobs.KeepSnapshots > 0 {
		n, err := s.jobs.Store.PruneSnapshots(ctx, s.jobs.KeepSnapshots)
		if err != nil {
			s.logger.Warn("snapshot prune job failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("pruned snapshots", "deleted", n)
		}
	}

	if s.jobs.EventRetention > 0 {
		n, err := s.jobs.Store.DeleteEventsBefore(ctx, s.now().Add(-s.jobs.EventRetention))
		if err != nil {
			s.logger.Warn("event log prune job failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("pruned event log", "deleted", n)
		}
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron job: "+msg, append(keysAndValues, "error", err)...)
}
