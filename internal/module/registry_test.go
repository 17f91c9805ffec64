// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/config"
	"github.com/olegiv/ocms-latest/internal/testutil"
)

// mockModule is a mock implementation of the Module interface for testing.
type mockModule struct {
	name         string
	version      string
	description  string
	dependencies []string
	migrations   []Migration
	initCalled   bool
	shutdownErr  error
	routesCalled bool
	adminCalled  bool
}

func newMockModule(name, version string) *mockModule {
	return &mockModule{name: name, version: version}
}

func (m *mockModule) Name() string            { return m.name }
func (m *mockModule) Version() string         { return m.version }
func (m *mockModule) Description() string     { return m.description }
func (m *mockModule) Dependencies() []string  { return m.dependencies }
func (m *mockModule) Migrations() []Migration { return m.migrations }
func (m *mockModule) Init(_ *Context) error   { m.initCalled = true; return nil }
func (m *mockModule) Shutdown() error         { return m.shutdownErr }
func (m *mockModule) RegisterRoutes(r chi.Router) {
	m.routesCalled = true
	r.Get("/"+m.name, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
func (m *mockModule) RegisterAdminRoutes(r chi.Router) {
	m.adminCalled = true
	r.Get("/admin/"+m.name, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// switchModule records activation calls.
type switchModule struct {
	*mockModule
	activations   int
	deactivations int
	failWith      error
}

func (m *switchModule) Activate(_ context.Context) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.activations++
	return nil
}

func (m *switchModule) Deactivate(_ context.Context) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.deactivations++
	return nil
}

// devOnlyModule is restricted to development.
type devOnlyModule struct{ *mockModule }

func (devOnlyModule) AllowedEnvs() []string { return []string{"development"} }

func newTestContext(t *testing.T) *Context {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return &Context{
		DB:     db,
		Logger: testutil.TestLoggerSilent(),
		Config: &config.Config{Env: "development"},
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())

	if r.Count() != 0 {
		t.Errorf("expected empty registry to have count 0, got %d", r.Count())
	}

	list := r.List()
	if list == nil {
		t.Error("expected List to return non-nil slice")
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d items", len(list))
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())

	if err := r.Register(newMockModule("test", "1.0.0")); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 module, got %d", r.Count())
	}

	if err := r.Register(newMockModule("test", "2.0.0")); err == nil {
		t.Error("expected error for duplicate module")
	}
}

func TestGetAndList(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())
	_ = r.Register(newMockModule("first", "1.0.0"))
	_ = r.Register(newMockModule("second", "1.0.0"))

	found, ok := r.Get("second")
	if !ok || found.Name() != "second" {
		t.Errorf("Get(second) = %v, %v", found, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}

	list := r.List()
	if len(list) != 2 || list[0].Name() != "first" || list[1].Name() != "second" {
		t.Errorf("List() not in registration order: %v", list)
	}
}

func TestInitAll(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())
	m := newMockModule("test", "1.0.0")
	_ = r.Register(m)

	if err := r.InitAll(context.Background(), newTestContext(t)); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if !m.initCalled {
		t.Error("Init was not called")
	}
	if !r.IsActive("test") {
		t.Error("new module should be active")
	}
}

func TestInitAllDependencies(t *testing.T) {
	t.Run("satisfied", func(t *testing.T) {
		r := NewRegistry(testutil.TestLoggerSilent())
		base := newMockModule("base", "1.0.0")
		dep := newMockModule("dependent", "1.0.0")
		dep.dependencies = []string{"base"}
		_ = r.Register(base)
		_ = r.Register(dep)

		if err := r.InitAll(context.Background(), newTestContext(t)); err != nil {
			t.Fatalf("InitAll() error = %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		r := NewRegistry(testutil.TestLoggerSilent())
		dep := newMockModule("dependent", "1.0.0")
		dep.dependencies = []string{"missing"}
		_ = r.Register(dep)

		if err := r.InitAll(context.Background(), newTestContext(t)); err == nil {
			t.Error("expected error for missing dependency")
		}
		if dep.initCalled {
			t.Error("Init should not run when a dependency is missing")
		}
	})
}

func TestShutdownAll(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())
	ok := newMockModule("ok", "1.0.0")
	bad := newMockModule("bad", "1.0.0")
	bad.shutdownErr = errors.New("boom")
	_ = r.Register(ok)
	_ = r.Register(bad)

	err := r.ShutdownAll()
	if err == nil {
		t.Fatal("expected shutdown error")
	}
	if !errors.Is(err, bad.shutdownErr) {
		t.Errorf("ShutdownAll() error = %v, want wrapped %v", err, bad.shutdownErr)
	}
}

func TestRouteAllBlocksInactive(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(testutil.TestLoggerSilent())
	m := newMockModule("blog", "1.0.0")
	_ = r.Register(m)
	if err := r.InitAll(ctx, newTestContext(t)); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}

	router := chi.NewRouter()
	r.RouteAll(router)
	r.AdminRouteAll(router)
	if !m.routesCalled || !m.adminCalled {
		t.Fatal("route registration was not called")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("active public route status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	if err := r.SetActive(ctx, "blog", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("inactive public route status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/blog", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("inactive admin route status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var body map[string]map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding admin error: %v", err)
	}
	if body["error"]["code"] != "module_inactive" {
		t.Errorf("admin error code = %q, want module_inactive", body["error"]["code"])
	}
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	mctx := newTestContext(t)

	runs := 0
	m := newMockModule("migrator", "1.0.0")
	m.migrations = []Migration{
		{
			Version:     1,
			Description: "create widgets",
			Up: func(db *sql.DB) error {
				runs++
				_, err := db.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY)")
				return err
			},
			Down: func(db *sql.DB) error {
				_, err := db.Exec("DROP TABLE widgets")
				return err
			},
		},
		{
			Version:     2,
			Description: "add name",
			Up: func(db *sql.DB) error {
				runs++
				_, err := db.Exec("ALTER TABLE widgets ADD COLUMN name TEXT")
				return err
			},
			Down: func(_ *sql.DB) error { return nil },
		},
	}

	r := NewRegistry(testutil.TestLoggerSilent())
	_ = r.Register(m)
	if err := r.InitAll(ctx, mctx); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}

	// A second registry over the same database must not rerun anything.
	r2 := NewRegistry(testutil.TestLoggerSilent())
	_ = r2.Register(m)
	if err := r2.InitAll(ctx, mctx); err != nil {
		t.Fatalf("second InitAll() error = %v", err)
	}
	if runs != 2 {
		t.Errorf("migration Up ran %d times, want 2", runs)
	}

	infos, err := r2.GetMigrationInfo(ctx, "migrator")
	if err != nil {
		t.Fatalf("GetMigrationInfo() error = %v", err)
	}
	if len(infos) != 2 || !infos[0].Applied || !infos[1].Applied {
		t.Errorf("GetMigrationInfo() = %+v, want both applied", infos)
	}

	if _, err := r2.GetMigrationInfo(ctx, "missing"); err == nil {
		t.Error("expected error for unknown module")
	}

	list := r2.ListInfo(ctx)
	if len(list) != 1 {
		t.Fatalf("ListInfo() returned %d entries, want 1", len(list))
	}
	if list[0].MigrationsApplied != 2 || list[0].MigrationsPending != 0 || !list[0].Initialized {
		t.Errorf("ListInfo()[0] = %+v", list[0])
	}
}

func TestSetActiveCallsActivationHandler(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(testutil.TestLoggerSilent())
	m := &switchModule{mockModule: newMockModule("switch", "1.0.0")}
	_ = r.Register(m)
	if err := r.InitAll(ctx, newTestContext(t)); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if m.deactivations != 0 {
		t.Errorf("active module was deactivated %d times at init", m.deactivations)
	}

	if err := r.SetActive(ctx, "switch", false); err != nil {
		t.Fatalf("SetActive(false) error = %v", err)
	}
	if err := r.SetActive(ctx, "switch", true); err != nil {
		t.Fatalf("SetActive(true) error = %v", err)
	}
	if m.deactivations != 1 || m.activations != 1 {
		t.Errorf("activations=%d deactivations=%d, want 1 and 1", m.activations, m.deactivations)
	}

	m.failWith = errors.New("refused")
	if err := r.SetActive(ctx, "switch", false); err == nil {
		t.Error("expected SetActive to surface the handler error")
	}
	if !r.IsActive("switch") {
		t.Error("status must not change when the handler fails")
	}
}

func TestActiveStatusPersistence(t *testing.T) {
	ctx := context.Background()
	mctx := newTestContext(t)

	r := NewRegistry(testutil.TestLoggerSilent())
	_ = r.Register(&switchModule{mockModule: newMockModule("persist", "1.0.0")})
	if err := r.InitAll(ctx, mctx); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if err := r.SetActive(ctx, "persist", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	// A fresh registry picks up the stored status and deactivates the module after Init.
	m := &switchModule{mockModule: newMockModule("persist", "1.0.0")}
	r2 := NewRegistry(testutil.TestLoggerSilent())
	_ = r2.Register(m)
	if err := r2.InitAll(ctx, mctx); err != nil {
		t.Fatalf("second InitAll() error = %v", err)
	}
	if r2.IsActive("persist") {
		t.Error("expected module to remain inactive")
	}
	if !m.initCalled || m.deactivations != 1 {
		t.Errorf("initCalled=%v deactivations=%d, want true and 1", m.initCalled, m.deactivations)
	}
	if info := r2.ListInfo(ctx); info[0].Active {
		t.Error("ListInfo should report the module as inactive")
	}
}

func TestSetActiveErrors(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(testutil.TestLoggerSilent())
	_ = r.Register(newMockModule("test", "1.0.0"))

	if err := r.SetActive(ctx, "test", false); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SetActive() before InitAll error = %v, want ErrNotInitialized", err)
	}

	if err := r.InitAll(ctx, newTestContext(t)); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}
	if err := r.SetActive(ctx, "missing", false); err == nil {
		t.Error("expected error for unregistered module")
	}
}

func TestEnvironmentChecker(t *testing.T) {
	ctx := context.Background()
	mctx := newTestContext(t)
	mctx.Config.Env = "production"

	r := NewRegistry(testutil.TestLoggerSilent())
	_ = r.Register(devOnlyModule{newMockModule("devtools", "1.0.0")})
	_ = r.Register(newMockModule("always", "1.0.0"))
	if err := r.InitAll(ctx, mctx); err != nil {
		t.Fatalf("InitAll() error = %v", err)
	}

	if r.IsActive("devtools") {
		t.Error("development-only module should be inactive in production")
	}
	if !r.IsActive("always") {
		t.Error("unrestricted module should be active")
	}
}

func TestIsActiveDefault(t *testing.T) {
	r := NewRegistry(testutil.TestLoggerSilent())
	if !r.IsActive("unknown") {
		t.Error("modules without stored status should default to active")
	}
}
