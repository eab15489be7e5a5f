// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/statsdash/internal/stats"
)

// Snapshot is a persisted raw stats payload.
type Snapshot struct {
	ID        int64
	Range     stats.DateRange
	Payload   []byte
	FetchedAt time.Time
}

// SaveSnapshot stores a raw payload. It implements stats.SnapshotSaver.
func (s *Store) SaveSnapshot(ctx context.Context, r stats.DateRange, payload []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (range_start, range_end, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		r.Start, r.End, payload, fetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently fetched snapshot, or ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, range_start, range_end, payload, fetched_at
		 FROM snapshots ORDER BY fetched_at DESC, id DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.Range.Start, &snap.Range.End, &snap.Payload, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading latest snapshot: %w", err)
	}
	return snap, nil
}

// CountSnapshots returns the number of stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}
	return n, nil
}

// PruneSnapshots keeps the newest keep snapshots and deletes the rest.
// It returns the number of deleted rows.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY fetched_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

var _ stats.SnapshotSaver = (*Store)(nil)
