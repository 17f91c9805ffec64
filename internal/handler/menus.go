// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
)

// MenusHandler serves rendered menus as JSON.
type MenusHandler struct {
	menus *service.MenuService
}

// NewMenusHandler creates a new MenusHandler.
func NewMenusHandler(menus *service.MenuService) *MenusHandler {
	return &MenusHandler{menus: menus}
}

// MenuResponse is the JSON body of GET /api/v1/menus/{slug}.
type MenuResponse struct {
	Slug  string              `json:"slug"`
	Items []service.MenuEntry `json:"items"`
}

// Get handles GET /api/v1/menus/{slug}.
func (h *MenusHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	tree, err := h.menus.GetMenu(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Menu not found", nil)
			return
		}
		logAndInternalError(w, "failed to load menu", "error", err, "menu", slug)
		return
	}
	if tree == nil {
		tree = []service.MenuEntry{}
	}

	// Entries may carry materialized URLs that change with content.
	w.Header().Set("Cache-Control", "no-cache")
	middleware.WriteJSON(w, http.StatusOK, MenuResponse{Slug: slug, Items: tree})
}
