// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-latest/internal/model"
)

const menuKeyPrefix = "menu:"

// MenuWithItems is a menu and its stored items, as read from the database.
type MenuWithItems struct {
	Menu  model.Menu       `json:"menu"`
	Items []model.MenuItem `json:"items"`
}

// MenuSource loads menus from persistent storage.
type MenuSource interface {
	GetMenuBySlug(ctx context.Context, slug string) (model.Menu, error)
	ListMenuItems(ctx context.Context, menuID int64) ([]model.MenuItem, error)
}

// MenuCache caches stored menu rows by slug.
// Only rows are cached; URLs computed at render time are never stored.
type MenuCache struct {
	backend Cache
	source  MenuSource
	ttl     time.Duration
}

// NewMenuCache creates a new menu cache. A ttl of 0 uses the backend default.
func NewMenuCache(backend Cache, source MenuSource, ttl time.Duration) *MenuCache {
	return &MenuCache{
		backend: backend,
		source:  source,
		ttl:     ttl,
	}
}

// Get returns the menu with its items, loading from the source on a miss.
// Source errors, including not-found, are returned unchanged and not cached.
func (c *MenuCache) Get(ctx context.Context, slug string) (*MenuWithItems, error) {
	key := menuKeyPrefix + slug

	data, err := c.backend.Get(ctx, key)
	if err == nil {
		var m MenuWithItems
		if err := json.Unmarshal(data, &m); err == nil {
			return &m, nil
		}
		slog.Warn("discarding corrupt menu cache entry", "category", model.EventCategoryCache, "menu", slug)
	} else if !errors.Is(err, ErrCacheMiss) {
		slog.Warn("menu cache read failed", "category", model.EventCategoryCache, "menu", slug, "error", err)
	}

	m, err := c.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
			slog.Warn("menu cache write failed", "category", model.EventCategoryCache, "menu", slug, "error", err)
		}
	}

	return m, nil
}

func (c *MenuCache) load(ctx context.Context, slug string) (*MenuWithItems, error) {
	menu, err := c.source.GetMenuBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	items, err := c.source.ListMenuItems(ctx, menu.ID)
	if err != nil {
		return nil, fmt.Errorf("loading items for menu %q: %w", slug, err)
	}

	return &MenuWithItems{Menu: menu, Items: items}, nil
}

// Invalidate drops the cached rows for one menu.
func (c *MenuCache) Invalidate(ctx context.Context, slug string) error {
	return c.backend.Delete(ctx, menuKeyPrefix+slug)
}

// InvalidateAll drops every cached menu.
func (c *MenuCache) InvalidateAll(ctx context.Context) error {
	return c.backend.DeleteByPrefix(ctx, menuKeyPrefix)
}
