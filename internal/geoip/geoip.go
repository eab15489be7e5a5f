// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves request IPs to countries using a MaxMind
// GeoLite2-Country database.
package geoip

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Local is returned for private, loopback and link-local addresses.
const Local = "LOCAL"

// Lookup resolves IP addresses to ISO country codes. Without a database it
// still classifies local addresses. It implements stats.CountryResolver.
type Lookup struct {
	mu        sync.RWMutex
	db        *maxminddb.Reader
	dbPath    string
	dbModTime time.Time
	logger    *slog.Logger
}

// geoRecord matches the GeoLite2-Country database structure.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

// New opens the database at dbPath. An empty path disables database
// lookups. A database that cannot be opened is logged and lookups degrade
// to local-address detection; the error is also returned.
func New(dbPath string, logger *slog.Logger) (*Lookup, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Lookup{dbPath: dbPath, logger: logger}
	if dbPath == "" {
		return g, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.loadLocked(); err != nil {
		logger.Warn("GeoIP database unavailable, country lookups disabled", "path", dbPath, "error", err)
		return g, err
	}
	logger.Info("GeoIP database loaded", "path", dbPath)
	return g, nil
}

// loadLocked opens the database unless the file is unchanged.
// Caller must hold g.mu write lock.
func (g *Lookup) loadLocked() error {
	info, err := os.Stat(g.dbPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("GeoIP database not found: %s", g.dbPath)
		}
		return fmt.Errorf("GeoIP database stat error: %w", err)
	}

	if g.db != nil && info.ModTime().Equal(g.dbModTime) {
		return nil
	}

	db, err := maxminddb.Open(g.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	if g.db != nil {
		_ = g.db.Close()
	}
	g.db = db
	g.dbModTime = info.ModTime()
	return nil
}

// Reload reopens the database if the file changed on disk.
// A failed reload keeps the previously loaded database.
func (g *Lookup) Reload() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dbPath == "" {
		return nil
	}

	before := g.dbModTime
	if err := g.loadLocked(); err != nil {
		return err
	}
	if !g.dbModTime.Equal(before) {
		g.logger.Info("GeoIP database reloaded", "path", g.dbPath, "modified", g.dbModTime)
	}
	return nil
}

// LookupCountry returns the 2-letter ISO country code for an IP address,
// Local for non-routable addresses, or an empty string when unknown.
func (g *Lookup) LookupCountry(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return ""
	}
	if isLocal(parsed) {
		return Local
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.db == nil {
		return ""
	}

	var record geoRecord
	if err := g.db.Lookup(parsed, &record); err != nil {
		return ""
	}
	if record.Country.ISOCode != "" {
		return record.Country.ISOCode
	}
	return record.RegisteredCountry.ISOCode
}

// IsEnabled returns whether database lookups are available.
func (g *Lookup) IsEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.db != nil
}

// Close closes the GeoIP database.
func (g *Lookup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

func isLocal(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified()
}
