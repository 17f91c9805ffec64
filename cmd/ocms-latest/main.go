// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-latest/internal/cache"
	"github.com/olegiv/ocms-latest/internal/config"
	"github.com/olegiv/ocms-latest/internal/handler"
	"github.com/olegiv/ocms-latest/internal/logging"
	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/rewrite"
	"github.com/olegiv/ocms-latest/internal/scheduler"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/internal/version"
	"github.com/olegiv/ocms-latest/modules/latestpost"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Path prefixes handled by chi only; rewrite rules and the public rate
// limit never apply to them.
var (
	rewriteSkipPrefixes = []string{"/admin", "/api", "/health"}
	rateLimitSkip       = []string{"/admin", "/health"}
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ocms-latest - menu links to the latest post in a category or tag\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_PATH           SQLite database path (default: ./data/ocms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SITE_URL          Site home URL (default: http://localhost:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ADMIN_TOKEN       Bearer token for the admin API (admin API disabled if empty)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REDIS_URL         Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo *version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(textHandler))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the Event Log database
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	queries := store.New(db)

	// Menu rows are cached; materialized URLs are computed on every render.
	backend, backendName, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = backend.Close() }()
	slog.Info("cache initialized", "backend", backendName)

	menuService := service.NewMenuService(db, cache.NewMenuCache(backend, queries, 0))
	eventService := service.NewEventService(db)

	rewriteRouter := rewrite.NewRouter(logger)
	rewriteRouter.Skip(rewriteSkipPrefixes...)

	moduleRegistry := module.NewRegistry(logger)
	if err := moduleRegistry.Register(latestpost.New()); err != nil {
		return fmt.Errorf("registering module: %w", err)
	}
	if err := moduleRegistry.InitAll(ctx, &module.Context{
		DB:      db,
		Store:   queries,
		Logger:  logger,
		Config:  cfg,
		Rewrite: rewriteRouter,
		Menus:   menuService,
		Events:  eventService,
	}); err != nil {
		return fmt.Errorf("initializing modules: %w", err)
	}
	defer func() {
		if err := moduleRegistry.ShutdownAll(); err != nil {
			slog.Error("error shutting down modules", "error", err)
		}
	}()
	slog.Info("modules initialized", "count", moduleRegistry.Count(), "rewrite_rules", rewriteRouter.Len())

	sched := scheduler.New(eventService, scheduler.Config{
		Spec:      cfg.EventCleanupCron,
		Retention: time.Duration(cfg.EventRetentionDays) * 24 * time.Hour,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	frontendHandler, err := handler.NewFrontendHandler(queries, menuService, cfg.SiteName, cfg.HomeURL(), logger)
	if err != nil {
		return fmt.Errorf("initializing frontend: %w", err)
	}
	healthHandler := handler.NewHealthHandler(db, versionInfo).WithCache(backendName, backend)
	menusHandler := handler.NewMenusHandler(menuService)
	eventsHandler := handler.NewEventsHandler(eventService)
	modulesHandler := handler.NewModulesHandler(moduleRegistry, eventService)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(skipPrefixes(middleware.NewGlobalRateLimiter(cfg.RateLimit, cfg.RateBurst).HTMLMiddleware(), rateLimitSkip...))
	// Rewrite rules take precedence over the catch-all /{slug} route.
	r.Use(rewriteRouter.Middleware)
	r.Use(middleware.StripTrailingSlash)

	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)

	r.Get(handler.RouteAPIMenus+handler.RouteParamSlug, menusHandler.Get)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.AdminToken))
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(
			middleware.CSRFKey(cfg.AdminToken), cfg.SiteURL, cfg.IsDevelopment())))

		r.Get(handler.RouteEvents, eventsHandler.List)
		r.Get(handler.RouteModules, modulesHandler.List)
		r.Post(handler.RouteModules+handler.RouteParamName+"/activate", modulesHandler.Activate)
		r.Post(handler.RouteModules+handler.RouteParamName+"/deactivate", modulesHandler.Deactivate)

		moduleRegistry.AdminRouteAll(r)
	})

	r.Get(handler.RouteRoot, frontendHandler.Home)
	r.Get(handler.RouteParamSlug, frontendHandler.Post)

	moduleRegistry.RouteAll(r)

	r.NotFound(frontendHandler.NotFound)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "site_url", cfg.HomeURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := eventService.LogInfo(shutdownCtx, model.EventCategorySystem, "Server stopped", nil); err != nil {
		slog.Debug("failed to record shutdown event", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// skipPrefixes applies mw to every request whose path is not under one of
// prefixes.
func skipPrefixes(mw func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if rewrite.HasPathPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}
