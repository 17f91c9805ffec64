// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-latest/internal/config"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/internal/testutil"
)

type stubModule struct {
	module.BaseModule
	activations int
}

func (m *stubModule) Migrations() []module.Migration {
	return []module.Migration{{
		Version:     1,
		Description: "create stub table",
		Up: func(db *sql.DB) error {
			_, err := db.Exec(`CREATE TABLE IF NOT EXISTS stub (id INTEGER PRIMARY KEY)`)
			return err
		},
	}}
}

func (m *stubModule) Activate(context.Context) error   { m.activations++; return nil }
func (m *stubModule) Deactivate(context.Context) error { m.activations--; return nil }

func newModulesRouter(t *testing.T) (chi.Router, *module.Registry, *service.EventService) {
	t.Helper()
	db := newTestDB(t)
	events := service.NewEventService(db)

	reg := module.NewRegistry(testutil.TestLoggerSilent())
	require.NoError(t, reg.Register(&stubModule{BaseModule: module.NewBaseModule("stub", "0.1.0", "Stub module")}))
	require.NoError(t, reg.InitAll(context.Background(), &module.Context{
		DB:     db,
		Store:  store.New(db),
		Logger: testutil.TestLoggerSilent(),
		Config: &config.Config{Env: "development"},
		Events: events,
	}))

	h := NewModulesHandler(reg, events)
	r := chi.NewRouter()
	r.Get(RouteModules, h.List)
	r.Post(RouteModules+RouteParamName+"/activate", h.Activate)
	r.Post(RouteModules+RouteParamName+"/deactivate", h.Deactivate)
	return r, reg, events
}

func TestModulesList(t *testing.T) {
	router, _, _ := newModulesRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/modules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Modules []ModuleView `json:"modules"`
		Count   int          `json:"count"`
	}
	decodeBody(t, rec, &body)
	require.Equal(t, 1, body.Count)
	m := body.Modules[0]
	assert.Equal(t, "stub", m.Name)
	assert.True(t, m.Active)
	assert.Equal(t, 1, m.MigrationsApplied)
	require.Len(t, m.Migrations, 1)
	assert.True(t, m.Migrations[0].Applied)
}

func TestModulesToggle(t *testing.T) {
	router, reg, events := newModulesRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/modules/stub/deactivate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, reg.IsActive("stub"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/modules/stub/activate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reg.IsActive("stub"))

	m, ok := reg.Get("stub")
	require.True(t, ok)
	assert.Equal(t, 0, m.(*stubModule).activations)

	logged, err := events.List(context.Background(), 10)
	require.NoError(t, err)
	var system int
	for _, e := range logged {
		if e.Category == model.EventCategorySystem {
			system++
		}
	}
	assert.Equal(t, 2, system)
}

func TestModulesToggleUnknown(t *testing.T) {
	router, _, _ := newModulesRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/modules/missing/activate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", apiErrorCode(t, rec))
}
