// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/config"
	"github.com/olegiv/ocms-latest/internal/testutil"
)

func TestNewBaseModule(t *testing.T) {
	base := NewBaseModule("test-module", "1.0.0", "A test module")

	if name := base.Name(); name != "test-module" {
		t.Errorf("Name() = %q, want %q", name, "test-module")
	}
	if version := base.Version(); version != "1.0.0" {
		t.Errorf("Version() = %q, want %q", version, "1.0.0")
	}
	if desc := base.Description(); desc != "A test module" {
		t.Errorf("Description() = %q, want %q", desc, "A test module")
	}
	if deps := base.Dependencies(); deps != nil {
		t.Errorf("Dependencies() = %v, want nil", deps)
	}
	if migs := base.Migrations(); migs != nil {
		t.Errorf("Migrations() = %v, want nil", migs)
	}
}

func TestBaseModuleInit(t *testing.T) {
	base := NewBaseModule("my-module", "1.0.0", "Description")

	// Context is nil initially
	if ctx := base.Context(); ctx != nil {
		t.Error("Context() should be nil before Init")
	}
	if base.Logger() == nil {
		t.Error("Logger() should fall back to the default logger before Init")
	}

	logger := testutil.TestLoggerSilent()
	ctx := &Context{Logger: logger, Config: &config.Config{}}
	if err := base.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if base.Context() != ctx {
		t.Error("Context() should return the context passed to Init")
	}
	if base.Logger() != logger {
		t.Error("Logger() should return the context logger after Init")
	}
}

func TestBaseModuleNoOps(t *testing.T) {
	base := NewBaseModule("my-module", "1.0.0", "Description")

	if err := base.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	r := chi.NewRouter()
	base.RegisterRoutes(r)
	base.RegisterAdminRoutes(r)
	if len(r.Routes()) != 0 {
		t.Errorf("BaseModule registered %d routes, want 0", len(r.Routes()))
	}
}

func TestMigrationStruct(t *testing.T) {
	upCalled := false
	mig := Migration{
		Version:     1,
		Description: "create table",
		Up: func(_ *sql.DB) error {
			upCalled = true
			return nil
		},
		Down: func(_ *sql.DB) error { return nil },
	}

	if err := mig.Up(nil); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if !upCalled {
		t.Error("Up was not called")
	}
	if mig.Version != 1 || mig.Description != "create table" {
		t.Errorf("unexpected migration %+v", mig)
	}
}
