// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package latestpost adds "latest post in a term" links. Paths of the form
// {term}/latest and tag/{term}/latest redirect to the newest published post
// in that term, and menu entries of type latest_post_link get their URL
// computed from the term's current slug on every render.
package latestpost

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/service"
)

// ModuleName is the registry name of the module and the owner of its rewrite rules.
const ModuleName = "latestpost"

// Module implements the module.Module interface.
type Module struct {
	module.BaseModule
	ctx *module.Context

	resolver     *Resolver
	materializer *Materializer
	policy       *bluemonday.Policy
	active       atomic.Bool
}

// New creates a new instance of the latest post module.
func New() *Module {
	m := &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			"1.0.0",
			"Menu links and redirects to the latest post in a category or tag",
		),
		policy: bluemonday.StrictPolicy(),
	}
	m.active.Store(true)
	return m
}

// Init wires the resolver and materializer and registers the rewrite rules.
func (m *Module) Init(ctx *module.Context) error {
	if ctx.Store == nil || ctx.Rewrite == nil || ctx.Menus == nil || ctx.Config == nil {
		return errors.New("latestpost: store, rewrite router, menu service and config are required")
	}
	if err := m.BaseModule.Init(ctx); err != nil {
		return err
	}
	m.ctx = ctx

	home := ctx.Config.HomeURL()
	m.resolver = NewResolver(ctx.Store, ctx.Store, home, ctx.Logger)
	m.materializer = NewMaterializer(ctx.Store, ctx.Store, home, ctx.Logger)

	if err := m.registerRules(); err != nil {
		return err
	}
	ctx.Menus.AddRenderer(m)

	ctx.Logger.Info("latest post module initialized", "home", home)
	return nil
}

// Activate re-registers the rewrite rules and resumes link rendering.
func (m *Module) Activate(ctx context.Context) error {
	m.active.Store(true)
	if err := m.registerRules(); err != nil {
		return err
	}
	m.ctx.Menus.InvalidateCache(ctx, "")
	return nil
}

// Deactivate removes the rewrite rules. Menu entries keep their stored URL
// while the module is inactive.
func (m *Module) Deactivate(ctx context.Context) error {
	m.active.Store(false)
	removed := m.ctx.Rewrite.RemoveOwner(ModuleName)
	m.ctx.Menus.InvalidateCache(ctx, "")
	m.Logger().Info("latest post rewrite rules removed", "count", removed)
	return nil
}

// Shutdown performs cleanup when the module is shutting down.
func (m *Module) Shutdown() error {
	if m.ctx != nil {
		m.ctx.Logger.Info("latest post module shutting down")
	}
	return nil
}

// RegisterAdminRoutes registers the JSON admin API.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Route("/latest-post", func(r chi.Router) {
		r.Get("/terms", m.handleListTerms)
		r.Post("/menus/{menuSlug}/items", m.handleCreateItem)
		r.Get("/menu-items/{id}", m.handleGetItem)
		r.Put("/menu-items/{id}", m.handleUpdateItem)
		r.Delete("/menu-items/{id}", m.handleDeleteItem)
	})
}

// RenderMenuEntries implements service.MenuEntryRenderer.
func (m *Module) RenderMenuEntries(ctx context.Context, entries []*service.MenuEntry) {
	if !m.active.Load() || m.materializer == nil {
		return
	}
	m.materializer.RenderMenuEntries(ctx, entries)
}

// Resolver returns the redirect handler, or nil before Init.
func (m *Module) Resolver() *Resolver { return m.resolver }

// registerRules adds the rule pair to the rewrite router. It runs at init,
// on activation and after every menu save; existing rules are kept.
func (m *Module) registerRules() error {
	added, err := RegisterRules(m.ctx.Rewrite, m.resolver)
	if err != nil {
		m.ctx.Logger.Error("latest post rewrite rules failed",
			"category", model.EventCategoryConfig, "error", err)
		return fmt.Errorf("latestpost: %w", err)
	}
	if added > 0 {
		m.ctx.Logger.Debug("latest post rewrite rules registered", "added", added)
	}
	return nil
}
