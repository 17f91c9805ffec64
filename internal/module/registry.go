// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/middleware"
)

// ErrNotInitialized is returned by status changes made before InitAll.
var ErrNotInitialized = errors.New("registry not initialized")

// Registry manages module registration and lifecycle.
type Registry struct {
	modules      map[string]Module
	order        []string // initialization order
	activeStatus map[string]bool
	ctx          *Context
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewRegistry creates a new module registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		modules:      make(map[string]Module),
		order:        make([]string, 0),
		activeStatus: make(map[string]bool),
		logger:       logger,
	}
}

// Register adds a module to the registry.
// Modules are registered in the order they are added.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.modules[name] = m
	r.order = append(r.order, name)
	r.logger.Info("module registered", "name", name, "version", m.Version())

	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[name]
	return m, ok
}

// List returns all registered modules in registration order.
func (r *Registry) List() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, name := range r.order {
		if m, ok := r.modules[name]; ok {
			modules = append(modules, m)
		}
	}
	return modules
}

// InitAll initializes all registered modules.
// Modules are initialized in registration order.
// Dependencies are checked before initialization. Modules stored as
// inactive are deactivated right after Init.
func (r *Registry) InitAll(ctx context.Context, mctx *Context) error {
	r.mu.Lock()
	r.ctx = mctx
	r.mu.Unlock()

	// First, verify all dependencies are met
	if err := r.checkDependencies(); err != nil {
		return err
	}

	// Then, run migrations for all modules
	if err := r.runAllMigrations(ctx, mctx.DB); err != nil {
		return err
	}

	// Load active status for all modules from database
	if err := r.loadActiveStatus(ctx, mctx.DB); err != nil {
		return fmt.Errorf("loading module active status: %w", err)
	}

	// Finally, initialize modules in order
	for _, name := range r.order {
		m := r.modules[name]
		active := r.IsActive(name)
		r.logger.Info("initializing module", "name", name, "active", active)

		if err := m.Init(mctx); err != nil {
			return fmt.Errorf("initializing module %q: %w", name, err)
		}

		if !active {
			if h, ok := m.(ActivationHandler); ok {
				if err := h.Deactivate(ctx); err != nil {
					return fmt.Errorf("deactivating module %q: %w", name, err)
				}
			}
		}

		r.logger.Info("module initialized", "name", name)
	}

	return nil
}

// checkDependencies verifies that all module dependencies are registered.
func (r *Registry) checkDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		for _, dep := range r.modules[name].Dependencies() {
			if _, ok := r.modules[dep]; !ok {
				return fmt.Errorf("module %q depends on %q which is not registered", name, dep)
			}
		}
	}
	return nil
}

// runAllMigrations runs migrations for all modules.
func (r *Registry) runAllMigrations(ctx context.Context, db *sql.DB) error {
	// First, ensure the module_migrations table exists
	if err := ensureTables(ctx, db); err != nil {
		return fmt.Errorf("ensuring migrations table: %w", err)
	}

	for _, name := range r.order {
		migrations := r.modules[name].Migrations()
		if len(migrations) == 0 {
			continue
		}

		r.logger.Info("running module migrations", "module", name, "count", len(migrations))

		for _, mig := range migrations {
			applied, err := isMigrationApplied(ctx, db, name, mig.Version)
			if err != nil {
				return fmt.Errorf("checking migration status for %s v%d: %w", name, mig.Version, err)
			}
			if applied {
				continue
			}

			r.logger.Info("applying migration", "module", name, "version", mig.Version, "description", mig.Description)

			if err := mig.Up(db); err != nil {
				return fmt.Errorf("running migration %s v%d: %w", name, mig.Version, err)
			}

			if _, err := db.ExecContext(ctx,
				"INSERT INTO module_migrations (module, version, applied_at) VALUES (?, ?, ?)",
				name, mig.Version, time.Now().UTC(),
			); err != nil {
				return fmt.Errorf("recording migration %s v%d: %w", name, mig.Version, err)
			}
		}
	}

	return nil
}

// ensureTables creates the module_migrations and modules tables if they don't exist.
func ensureTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS module_migrations (
			module TEXT NOT NULL,
			version INTEGER NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (module, version)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS modules (
			name TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has already been applied.
func isMigrationApplied(ctx context.Context, db *sql.DB, module string, version int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM module_migrations WHERE module = ? AND version = ?",
		module, version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// loadActiveStatus loads the active status for all registered modules from the database.
// Modules not in the database are inserted as active unless an EnvironmentChecker
// excludes the current environment.
func (r *Registry) loadActiveStatus(ctx context.Context, db *sql.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		var isActive bool
		err := db.QueryRowContext(ctx, "SELECT is_active FROM modules WHERE name = ?", name).Scan(&isActive)
		if errors.Is(err, sql.ErrNoRows) {
			isActive = r.allowedInEnv(r.modules[name])
			_, err = db.ExecContext(ctx,
				"INSERT INTO modules (name, is_active, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
				name, isActive,
			)
			if err != nil {
				return fmt.Errorf("inserting module %s: %w", name, err)
			}
			r.activeStatus[name] = isActive
			r.logger.Debug("module registered in database", "module", name, "active", isActive)
			continue
		}
		if err != nil {
			return fmt.Errorf("loading active status for module %s: %w", name, err)
		}
		r.activeStatus[name] = isActive
		r.logger.Debug("loaded module status", "module", name, "active", isActive)
	}
	return nil
}

func (r *Registry) allowedInEnv(m Module) bool {
	ec, ok := m.(EnvironmentChecker)
	if !ok || r.ctx == nil || r.ctx.Config == nil {
		return true
	}
	return slices.Contains(ec.AllowedEnvs(), r.ctx.Config.Env)
}

// IsActive returns whether a module is active.
// Modules without a stored status are considered active.
func (r *Registry) IsActive(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, exists := r.activeStatus[name]
	if !exists {
		return true
	}
	return active
}

// SetActive sets a module's active status, persists it to the database
// and notifies the module if it implements ActivationHandler. The stored
// status is only changed when the handler succeeds.
func (r *Registry) SetActive(ctx context.Context, name string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.modules[name]
	if !exists {
		return fmt.Errorf("module %q not registered", name)
	}
	if r.ctx == nil || r.ctx.DB == nil {
		return ErrNotInitialized
	}

	if h, ok := m.(ActivationHandler); ok {
		var err error
		if active {
			err = h.Activate(ctx)
		} else {
			err = h.Deactivate(ctx)
		}
		if err != nil {
			return fmt.Errorf("switching module %q: %w", name, err)
		}
	}

	_, err := r.ctx.DB.ExecContext(ctx,
		"UPDATE modules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?",
		active, name,
	)
	if err != nil {
		return fmt.Errorf("updating module is_active: %w", err)
	}

	r.activeStatus[name] = active
	r.logger.Info("module status changed", "module", name, "active", active)
	return nil
}

// ShutdownAll shuts down all modules in reverse order.
func (r *Registry) ShutdownAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error

	// Shutdown in reverse order
	for _, name := range slices.Backward(r.order) {
		m := r.modules[name]
		r.logger.Info("shutting down module", "name", name)

		if err := m.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutting down module %q: %w", name, err))
			r.logger.Error("module shutdown error", "name", name, "error", err)
		}
	}

	return errors.Join(errs...)
}

// routeAllWithFunc registers all module routes using the provided registration function.
func (r *Registry) routeAllWithFunc(router chi.Router, isAdmin bool, registerFunc func(Module, chi.Router)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		m := r.modules[name]
		moduleName := name

		// Create a sub-router with middleware that checks active status
		router.Group(func(subRouter chi.Router) {
			subRouter.Use(r.moduleActiveMiddleware(moduleName, isAdmin))
			registerFunc(m, subRouter)
		})
	}
}

// RouteAll registers all module public routes with active status middleware.
func (r *Registry) RouteAll(router chi.Router) {
	r.routeAllWithFunc(router, false, func(m Module, subRouter chi.Router) {
		m.RegisterRoutes(subRouter)
	})
}

// AdminRouteAll registers all module admin routes with active status middleware.
func (r *Registry) AdminRouteAll(router chi.Router) {
	r.routeAllWithFunc(router, true, func(m Module, subRouter chi.Router) {
		m.RegisterAdminRoutes(subRouter)
	})
}

// moduleActiveMiddleware returns middleware that checks if a module is active.
// Inactive modules answer 404, as JSON for admin routes.
func (r *Registry) moduleActiveMiddleware(moduleName string, isAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.IsActive(moduleName) {
				r.logger.Debug("blocked request to inactive module",
					"module", moduleName,
					"path", req.URL.Path,
					"isAdmin", isAdmin,
				)
				if isAdmin {
					middleware.WriteAPIError(w, http.StatusNotFound, "module_inactive",
						fmt.Sprintf("module %q is not active", moduleName), nil)
					return
				}
				http.NotFound(w, req)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// Info contains information about a registered module.
type Info struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Description       string `json:"description"`
	Initialized       bool   `json:"initialized"`
	Active            bool   `json:"active"`
	MigrationCount    int    `json:"migration_count"`
	MigrationsApplied int    `json:"migrations_applied"`
	MigrationsPending int    `json:"migrations_pending"`
}

// MigrationInfo contains information about a module migration.
type MigrationInfo struct {
	Version     int64  `json:"version"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// ListInfo returns information about all registered modules.
func (r *Registry) ListInfo(ctx context.Context) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		m := r.modules[name]
		migrations := m.Migrations()
		appliedCount := 0

		if r.ctx != nil && r.ctx.DB != nil {
			for _, mig := range migrations {
				applied, err := isMigrationApplied(ctx, r.ctx.DB, name, mig.Version)
				if err == nil && applied {
					appliedCount++
				}
			}
		}

		active, exists := r.activeStatus[name]
		if !exists {
			active = true
		}

		infos = append(infos, Info{
			Name:              m.Name(),
			Version:           m.Version(),
			Description:       m.Description(),
			Initialized:       r.ctx != nil,
			Active:            active,
			MigrationCount:    len(migrations),
			MigrationsApplied: appliedCount,
			MigrationsPending: len(migrations) - appliedCount,
		})
	}
	return infos
}

// GetMigrationInfo returns detailed migration information for a specific module.
func (r *Registry) GetMigrationInfo(ctx context.Context, moduleName string) ([]MigrationInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[moduleName]
	if !ok {
		return nil, fmt.Errorf("module %q not found", moduleName)
	}

	migrations := m.Migrations()
	infos := make([]MigrationInfo, len(migrations))

	for i, mig := range migrations {
		applied := false
		if r.ctx != nil && r.ctx.DB != nil {
			var err error
			applied, err = isMigrationApplied(ctx, r.ctx.DB, moduleName, mig.Version)
			if err != nil {
				r.logger.Warn("failed to check migration status", "module", moduleName, "version", mig.Version, "error", err)
			}
		}

		infos[i] = MigrationInfo{
			Version:     mig.Version,
			Description: mig.Description,
			Applied:     applied,
		}
	}

	return infos, nil
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
