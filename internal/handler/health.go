// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/olegiv/ocms-latest/internal/cache"
	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/version"
)

// dbCheckTimeout bounds the database ping of a health check.
const dbCheckTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	db          *sql.DB
	versionInfo *version.Info
	startTime   time.Time

	cacheBackend string
	cacheStats   cache.StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, versionInfo *version.Info) *HealthHandler {
	return &HealthHandler{
		db:          db,
		versionInfo: versionInfo,
		startTime:   time.Now(),
	}
}

// WithCache adds the menu cache statistics to the health report.
// Backends that do not implement cache.StatsProvider report the backend name only.
func (h *HealthHandler) WithCache(backend string, c cache.Cache) *HealthHandler {
	h.cacheBackend = backend
	if sp, ok := c.(cache.StatsProvider); ok {
		h.cacheStats = sp
	}
	return h
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Cache     *CacheStatus     `json:"cache,omitempty"`
}

// CacheStatus reports the cache backend and its counters.
type CacheStatus struct {
	Backend string       `json:"backend"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())

	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]Check{"database": dbCheck},
	}
	if h.versionInfo != nil {
		status.Version = h.versionInfo.Version
	}
	if h.cacheBackend != "" {
		status.Cache = &CacheStatus{Backend: h.cacheBackend}
		if h.cacheStats != nil {
			stats := h.cacheStats.Stats()
			status.Cache.Stats = &stats
		}
	}

	code := http.StatusOK
	if dbCheck.Status != "ok" {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	middleware.WriteJSON(w, code, status)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready - checks if the service is ready to accept traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if dbCheck := h.checkDatabase(r.Context()); dbCheck.Status != "ok" {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// checkDatabase pings the database.
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, dbCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: "error", Message: "database unreachable"}
	}

	return Check{
		Status:  "ok",
		Latency: time.Since(start).Round(time.Microsecond).String(),
	}
}
