// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic and service layer functionality.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"sync"

	"github.com/olegiv/ocms-latest/internal/cache"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/store"
)

// MenuEntry is a menu item prepared for rendering. Renderers may rewrite
// its URL and Title.
type MenuEntry struct {
	ID       int64       `json:"id"`
	ParentID int64       `json:"parent_id,omitempty"`
	Type     string      `json:"type"`
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Target   string      `json:"target"`
	CSSClass string      `json:"css_class,omitempty"`
	Position int         `json:"position"`
	Children []MenuEntry `json:"children"`
}

// MenuEntryRenderer adjusts menu entries just before display. It receives
// the whole ordered entry list of one menu, once per render.
type MenuEntryRenderer interface {
	RenderMenuEntries(ctx context.Context, entries []*MenuEntry)
}

// MenuEntryRendererFunc adapts a function to MenuEntryRenderer.
type MenuEntryRendererFunc func(ctx context.Context, entries []*MenuEntry)

// RenderMenuEntries calls f(ctx, entries).
func (f MenuEntryRendererFunc) RenderMenuEntries(ctx context.Context, entries []*MenuEntry) {
	f(ctx, entries)
}

// MenuService provides menu loading with tree building.
// Stored rows come from cache.MenuCache when configured; rendering runs on
// every call.
type MenuService struct {
	queries   *store.Queries
	menuCache *cache.MenuCache

	mu        sync.RWMutex
	renderers []MenuEntryRenderer
}

// NewMenuService creates a new MenuService.
// If menuCache is nil, menus are read directly from the database.
func NewMenuService(db *sql.DB, menuCache *cache.MenuCache) *MenuService {
	return &MenuService{
		queries:   store.New(db),
		menuCache: menuCache,
	}
}

// AddRenderer registers a renderer. Renderers run in registration order.
func (s *MenuService) AddRenderer(r MenuEntryRenderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, r)
}

// GetMenu returns the rendered menu tree for slug.
// Returns store.ErrNotFound if the menu does not exist.
func (s *MenuService) GetMenu(ctx context.Context, slug string) ([]MenuEntry, error) {
	entries, err := s.Entries(ctx, slug)
	if err != nil {
		return nil, err
	}
	return buildMenuTree(entries), nil
}

// Entries returns the active entries of a menu, flat and in stored order,
// after every renderer has run.
func (s *MenuService) Entries(ctx context.Context, slug string) ([]*MenuEntry, error) {
	items, err := s.loadItems(ctx, slug)
	if err != nil {
		return nil, err
	}

	entries := make([]*MenuEntry, 0, len(items))
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		entries = append(entries, entryFromItem(item))
	}

	s.mu.RLock()
	renderers := append([]MenuEntryRenderer(nil), s.renderers...)
	s.mu.RUnlock()

	for _, r := range renderers {
		r.RenderMenuEntries(ctx, entries)
	}
	return entries, nil
}

func (s *MenuService) loadItems(ctx context.Context, slug string) ([]model.MenuItem, error) {
	if s.menuCache != nil {
		cached, err := s.menuCache.Get(ctx, slug)
		if err != nil {
			return nil, err
		}
		return cached.Items, nil
	}

	menu, err := s.queries.GetMenuBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.queries.ListMenuItems(ctx, menu.ID)
}

// InvalidateCache clears cached rows for one menu, or all menus when slug is empty.
func (s *MenuService) InvalidateCache(ctx context.Context, slug string) {
	if s.menuCache == nil {
		return
	}
	var err error
	if slug == "" {
		err = s.menuCache.InvalidateAll(ctx)
	} else {
		err = s.menuCache.Invalidate(ctx, slug)
	}
	if err != nil {
		slog.Warn("menu cache invalidation failed", "category", model.EventCategoryCache, "menu", slug, "error", err)
	}
}

func entryFromItem(item model.MenuItem) *MenuEntry {
	e := &MenuEntry{
		ID:       item.ID,
		Type:     item.Type,
		Title:    item.Title,
		URL:      item.URL,
		Target:   item.Target,
		CSSClass: item.CSSClass,
		Position: item.Position,
	}
	if e.Target == "" {
		e.Target = model.TargetSelf
	}
	if item.ParentID.Valid {
		e.ParentID = item.ParentID.Int64
	}
	return e
}

// buildMenuTree converts a flat list to a nested tree. Children whose
// parent is missing or inactive are dropped.
func buildMenuTree(entries []*MenuEntry) []MenuEntry {
	byID := make(map[int64]*MenuEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	children := make(map[int64][]*MenuEntry)
	var roots []*MenuEntry
	for _, e := range entries {
		if e.ParentID == 0 {
			roots = append(roots, e)
			continue
		}
		if _, ok := byID[e.ParentID]; ok {
			children[e.ParentID] = append(children[e.ParentID], e)
		}
	}

	var build func(list []*MenuEntry, seen map[int64]bool) []MenuEntry
	build = func(list []*MenuEntry, seen map[int64]bool) []MenuEntry {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Position < list[j].Position
		})
		out := make([]MenuEntry, 0, len(list))
		for _, e := range list {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			node := *e
			node.Children = build(children[e.ID], seen)
			out = append(out, node)
		}
		return out
	}

	return build(roots, make(map[int64]bool))
}
