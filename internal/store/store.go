// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
)

// Store runs queries against the statsdash database.
type Store struct {
	db *sql.DB
}

// New creates a Store over an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Error represents an error type for store operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

// ErrNotFound indicates the requested row does not exist.
const ErrNotFound Error = "not found"
