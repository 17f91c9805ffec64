// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil provides module-specific test helpers for the oCMS project.
package moduleutil

import (
	"database/sql"
	"testing"

	"github.com/olegiv/ocms-latest/internal/config"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/rewrite"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/internal/testutil"
)

// TestSiteURL is the site root used by TestModuleContext.
const TestSiteURL = "http://example.test"

// RunMigrations runs all migrations up for the given module.
func RunMigrations(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for _, mig := range migrations {
		if err := mig.Up(db); err != nil {
			t.Fatalf("migration %d up: %v", mig.Version, err)
		}
	}
}

// TestModuleContext creates a fully wired module.Context over a migrated
// temporary database. The menu service reads rows directly, without a cache.
func TestModuleContext(t *testing.T) *module.Context {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return TestModuleContextWithDB(t, db)
}

// TestModuleContextWithDB is TestModuleContext over an existing database.
func TestModuleContextWithDB(t *testing.T, db *sql.DB) *module.Context {
	t.Helper()
	logger := testutil.TestLoggerSilent()
	return &module.Context{
		DB:      db,
		Store:   store.New(db),
		Logger:  logger,
		Config:  &config.Config{Env: "development", SiteURL: TestSiteURL},
		Rewrite: rewrite.NewRouter(logger),
		Menus:   service.NewMenuService(db, nil),
		Events:  service.NewEventService(db),
	}
}
