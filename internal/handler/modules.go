// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/service"
)

// ModulesHandler handles module administration routes.
type ModulesHandler struct {
	registry *module.Registry
	events   *service.EventService
}

// NewModulesHandler creates a new ModulesHandler.
func NewModulesHandler(registry *module.Registry, events *service.EventService) *ModulesHandler {
	return &ModulesHandler{
		registry: registry,
		events:   events,
	}
}

// ModuleView is a module with its migrations.
type ModuleView struct {
	module.Info
	Migrations []module.MigrationInfo `json:"migrations"`
}

// List handles GET /admin/modules.
func (h *ModulesHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.registry.ListInfo(r.Context())

	views := make([]ModuleView, 0, len(infos))
	for _, info := range infos {
		migrations, err := h.registry.GetMigrationInfo(r.Context(), info.Name)
		if err != nil {
			logAndInternalError(w, "failed to load module migrations", "error", err, "module", info.Name)
			return
		}
		views = append(views, ModuleView{Info: info, Migrations: migrations})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"modules": views,
		"count":   len(views),
	})
}

// Activate handles POST /admin/modules/{name}/activate.
func (h *ModulesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles POST /admin/modules/{name}/deactivate.
func (h *ModulesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *ModulesHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	name := chi.URLParam(r, "name")
	if _, ok := h.registry.Get(name); !ok {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Module not found", nil)
		return
	}

	if err := h.registry.SetActive(r.Context(), name, active); err != nil {
		logAndInternalError(w, "failed to change module status", "error", err, "module", name)
		return
	}

	h.logModuleEvent(r.Context(), name, active, middleware.GetRequestID(r.Context()))
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"name":   name,
		"active": active,
	})
}

func (h *ModulesHandler) logModuleEvent(ctx context.Context, name string, active bool, requestID string) {
	if h.events == nil {
		return
	}
	message := "Module activated"
	if !active {
		message = "Module deactivated"
	}
	if err := h.events.LogInfo(ctx, model.EventCategorySystem, message, map[string]any{
		"module":     name,
		"request_id": requestID,
	}); err != nil {
		slog.Debug("failed to record module event", "error", err)
	}
}
