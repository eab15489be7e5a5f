// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/statsdash/internal/cache"
	"github.com/olegiv/statsdash/internal/client"
	"github.com/olegiv/statsdash/internal/config"
	"github.com/olegiv/statsdash/internal/geoip"
	"github.com/olegiv/statsdash/internal/handler"
	"github.com/olegiv/statsdash/internal/i18n"
	"github.com/olegiv/statsdash/internal/logging"
	"github.com/olegiv/statsdash/internal/middleware"
	"github.com/olegiv/statsdash/internal/render"
	"github.com/olegiv/statsdash/internal/scheduler"
	"github.com/olegiv/statsdash/internal/stats"
	"github.com/olegiv/statsdash/internal/store"
	"github.com/olegiv/statsdash/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "statsdash - stats dashboard for a site analytics backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_BACKEND_URL       Stats backend base URL (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_FETCH_TIMEOUT     Per-attempt backend timeout; with retries must stay below STATSDASH_REQUEST_TIMEOUT (default: 8s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_TIMEZONE          Display time zone (default: UTC)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_LOCALE            Label locale (default: en)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_TRACKED_EVENTS    Event series to chart, * for all (default: quick_sync,account_created)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_REFRESH_SCHEDULE  Cron spec for periodic refresh, empty disables (default: */5 * * * *)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_DB_PATH           SQLite path for snapshots and events, empty disables (default: ./data/statsdash.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_REDIS_URL         Redis URL for the payload cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STATSDASH_GEOIP_DB_PATH     GeoLite2-Country.mmdb for IP countries (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: snapshots and the event log
	var db *store.Store
	if cfg.PersistenceEnabled() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		slog.Info("opening database", "path", cfg.DBPath)
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing database connection", "error", err)
			}
		}()

		// Upgrade logger to also write WARN and ERROR logs to the event log
		logger = slog.New(logging.NewEventLogHandler(textHandler, db))
		slog.SetDefault(logger)
		slog.Info("event log integration enabled", "min_level", "warn")
	}

	catalog, err := i18n.New(defaultUILanguage(cfg), logger)
	if err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	payloadCache := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}, logger)
	defer func() { _ = payloadCache.Close() }()

	backend, err := client.New(client.Options{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.FetchTimeout,
		Retries:   cfg.FetchRetries,
		Backoff:   cfg.FetchBackoff,
		RPS:       cfg.FetchRPS,
		Burst:     cfg.FetchBurst,
		UserAgent: info.UserAgent(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating stats client: %w", err)
	}
	slog.Info("stats backend configured", "endpoint", backend.Endpoint())

	var fetcher stats.Fetcher = backend
	if cfg.CacheTTL > 0 {
		fetcher = client.NewCachedFetcher(backend, payloadCache, cfg.CacheTTLDuration(), logger)
	}

	// GeoIP degrades to local-address detection when the database is missing
	countries, _ := geoip.New(cfg.GeoIPDBPath, logger)
	defer func() { _ = countries.Close() }()

	opts := stats.Options{
		Location:           cfg.Location(),
		Locale:             cfg.LocaleTag(),
		Granularity:        cfg.DefaultGranularity(),
		TopN:               cfg.TopN,
		LocalDayBoundaries: cfg.LocalDayBoundaries,
		TrackedEvents:      cfg.Events(),
		Countries:          countries,
		Logger:             logger,
	}
	if db != nil {
		opts.Snapshots = db
	}
	pipeline := stats.NewPipeline(fetcher, opts)

	if db != nil {
		restoreSnapshot(ctx, db, pipeline)
	}

	go func() {
		if _, err := pipeline.Load(ctx, "", ""); err != nil && !errors.Is(err, stats.ErrSuperseded) {
			slog.Warn("initial stats load failed", "error", err)
		}
	}()

	jobs := scheduler.Jobs{
		Refresher:       pipeline,
		RefreshSchedule: cfg.RefreshSchedule,
		KeepSnapshots:   cfg.KeepSnapshots,
		EventRetention:  cfg.EventRetention,
	}
	if cfg.GeoIPEnabled() {
		jobs.GeoIP = countries
	}
	if db != nil {
		jobs.Store = db
	}
	sched := scheduler.New(jobs, cfg.Location(), logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Language(catalog))

	csrfConfig := middleware.DefaultCSRFConfig(nil, cfg.IsDevelopment(), cfg.ServerPort)
	csrfConfig.TrustedOrigins = append(csrfConfig.TrustedOrigins, cfg.CSRFTrustedOrigins...)
	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst)

	renderer := render.New(render.Config{Catalog: catalog, Location: cfg.Location()})

	var eventLister handler.EventLister
	checks := map[string]handler.Pinger{}
	if db != nil {
		eventLister = db
		checks["database"] = db
	}
	if rc, ok := payloadCache.(*cache.RedisCache); ok {
		checks["cache"] = rc
	}

	handler.RegisterRoutes(r, handler.Handlers{
		Dashboard: handler.NewDashboardHandler(pipeline, renderer, catalog, logger),
		Events:    handler.NewEventsHandler(eventLister, logger),
		Health:    handler.NewHealthHandler(info, pipeline, checks),
		Jobs:      handler.NewJobsHandler(sched, logger),
		Cache:     handler.NewCacheHandler(payloadCache, logger),
	}, apiLimiter.Middleware(), middleware.CSRF(csrfConfig))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// restoreSnapshot shows the last persisted payload until the first fetch
// completes.
func restoreSnapshot(ctx context.Context, db *store.Store, p *stats.Pipeline) {
	snap, err := db.LatestSnapshot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("failed to read latest snapshot", "error", err)
		return
	}
	if err := p.Restore(snap.Range, snap.Payload, snap.FetchedAt); err != nil {
		slog.Warn("failed to restore snapshot", "range", snap.Range.String(), "error", err)
	}
}

// defaultUILanguage picks the UI fallback language from the label locale.
func defaultUILanguage(cfg *config.Config) string {
	base, _ := cfg.LocaleTag().Base()
	for _, lang := range i18n.SupportedLanguages {
		if lang == base.String() {
			return lang
		}
	}
	return "en"
}
