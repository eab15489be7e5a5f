// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olegiv/statsdash/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRefresher struct {
	calls atomic.Int32
	deadline atomic.Bool
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (stats.State, error) {
	f.calls.Add(1)
	_, hasDeadline := ctx.Deadline()
	f.deadline.Store(hasDeadline)
	return stats.State{}, f.err
}

type fakeReloader struct {
	calls atomic.Int32
}

func (f *fakeReloader) Reload() error {
	f.calls.Add(1)
	return errors.New("database missing")
}

type fakePruner struct {
	keep   int
	before time.Time
}

func (f *fakePruner) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	f.keep = keep
	return 1, nil
}

func (f *fakePruner) DeleteEventsBefore(_ context.Context, t time.Time) (int64, error) {
	f.before = t
	return 0, nil
}

func TestScheduler_NoJobs(t *testing.T) {
	s := New(Jobs{}, nil, testLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if jobs := s.Jobs(); len(jobs) != 0 {
		t.Errorf("Jobs() = %v, want none", jobs)
	}
	if err := s.Run(JobRefresh); err == nil {
		t.Error("Run of an unregistered job should fail")
	}
}

func TestScheduler_RefreshDisabledWithoutSchedule(t *testing.T) {
	s := New(Jobs{Refresher: &fakeRefresher{}}, time.UTC, testLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if jobs := s.Jobs(); len(jobs) != 0 {
		t.Errorf("Jobs() = %v, want none", jobs)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(Jobs{Refresher: &fakeRefresher{}, RefreshSchedule: "every now and then"}, time.UTC, testLogger())

	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduler_RunJobs(t *testing.T) {
	refresher := &fakeRefresher{err: stats.ErrNetworkFailure}
	reloader := &fakeReloader{}
	pruner := &fakePruner{}
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	s := New(Jobs{
		Refresher:       refresher,
		RefreshSchedule: "*/5 * * * *",
		GeoIP:           reloader,
		Store:           pruner,
		KeepSnapshots:   20,
		EventRetention:  24 * time.Hour,
	}, time.UTC, testLogger())
	s.now = func() time.Time { return now }

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	jobs := s.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("len(Jobs()) = %d, want 3", len(jobs))
	}
	if jobs[0].Name != JobRefresh || jobs[0].Schedule != "*/5 * * * *" {
		t.Errorf("jobs[0] = %+v", jobs[0])
	}
	if jobs[1].Name != JobGeoIPReload || jobs[2].Name != JobPruneStore {
		t.Errorf("unexpected job order: %+v", jobs)
	}

	for _, name := range []string{JobRefresh, JobGeoIPReload, JobPruneStore} {
		if err := s.Run(name); err != nil {
			t.Fatalf("Run(%s) error = %v", name, err)
		}
	}

	if refresher.calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", refresher.calls.Load())
	}
	if !refresher.deadline.Load() {
		t.Error("refresh should run with a deadline")
	}
	if reloader.calls.Load() != 1 {
		t.Errorf("reload calls = %d, want 1", reloader.calls.Load())
	}
	if pruner.keep != 20 {
		t.Errorf("keep = %d, want 20", pruner.keep)
	}
	if want := now.Add(-24 * time.Hour); !pruner.before.Equal(want) {
		t.Errorf("before = %v, want %v", pruner.before, want)
	}
}
