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

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
)

func menuRouter(h *MenusHandler) chi.Router {
	r := chi.NewRouter()
	r.Get(RouteAPIMenus+RouteParamSlug, h.Get)
	return r
}

func TestMenusGet(t *testing.T) {
	db := newTestDB(t)
	q := store.New(db)
	ctx := context.Background()

	menu, err := q.GetMenuBySlug(ctx, model.MenuMain)
	require.NoError(t, err)
	parent, err := q.CreateMenuItem(ctx, store.CreateMenuItemParams{MenuID: menu.ID, Title: "About", URL: "/about"})
	require.NoError(t, err)
	_, err = q.CreateMenuItem(ctx, store.CreateMenuItemParams{
		MenuID:   menu.ID,
		ParentID: sql.NullInt64{Int64: parent.ID, Valid: true},
		Title:    "Team",
		URL:      "/team",
	})
	require.NoError(t, err)

	menus := service.NewMenuService(db, nil)
	menus.AddRenderer(service.MenuEntryRendererFunc(func(_ context.Context, entries []*service.MenuEntry) {
		for _, e := range entries {
			if e.Title == "Team" {
				e.URL = testHome + "/rendered"
			}
		}
	}))

	rec := httptest.NewRecorder()
	menuRouter(NewMenusHandler(menus)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menus/main", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var body MenuResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, model.MenuMain, body.Slug)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "/about", body.Items[0].URL)
	require.Len(t, body.Items[0].Children, 1)
	assert.Equal(t, testHome+"/rendered", body.Items[0].Children[0].URL)
}

func TestMenusGetEmptyAndMissing(t *testing.T) {
	router := menuRouter(NewMenusHandler(service.NewMenuService(newTestDB(t), nil)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menus/footer", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menus/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", apiErrorCode(t, rec))
}
