// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/olegiv/ocms-latest/internal/model"
)

const menuItemColumns = `id, menu_id, parent_id, type, title, url, target, position, css_class, is_active, created_at, updated_at`

func scanMenuItem(s rowScanner) (model.MenuItem, error) {
	var mi model.MenuItem
	err := s.Scan(&mi.ID, &mi.MenuID, &mi.ParentID, &mi.Type, &mi.Title, &mi.URL, &mi.Target,
		&mi.Position, &mi.CSSClass, &mi.IsActive, &mi.CreatedAt, &mi.UpdatedAt)
	return mi, err
}

// GetMenuBySlug returns a menu by slug.
func (q *Queries) GetMenuBySlug(ctx context.Context, slug string) (model.Menu, error) {
	var m model.Menu
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM menus WHERE slug = ?`, slug,
	).Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Menu{}, notFound(err)
	}
	return m, nil
}

// ListMenus returns all menus ordered by name.
func (q *Queries) ListMenus(ctx context.Context) ([]model.Menu, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM menus ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var menus []model.Menu
	for rows.Next() {
		var m model.Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

// ListMenuItems returns a menu's items in render order.
func (q *Queries) ListMenuItems(ctx context.Context, menuID int64) ([]model.MenuItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE menu_id = ? ORDER BY position, id`, menuID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.MenuItem
	for rows.Next() {
		mi, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, mi)
	}
	return items, rows.Err()
}

// GetMenuItem returns a menu item by ID.
func (q *Queries) GetMenuItem(ctx context.Context, id int64) (model.MenuItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = ?`, id)
	mi, err := scanMenuItem(row)
	if err != nil {
		return model.MenuItem{}, notFound(err)
	}
	return mi, nil
}

// CreateMenuItemParams holds the fields for a new menu item.
type CreateMenuItemParams struct {
	MenuID   int64
	ParentID sql.NullInt64
	Type     string
	Title    string
	URL      string
	Target   string
	Position int
	CSSClass string
}

// CreateMenuItem inserts an active menu item.
func (q *Queries) CreateMenuItem(ctx context.Context, p CreateMenuItemParams) (model.MenuItem, error) {
	if p.Type == "" {
		p.Type = model.MenuItemTypeCustom
	}
	if p.Target == "" {
		p.Target = model.TargetSelf
	}
	if !model.IsValidTarget(p.Target) {
		return model.MenuItem{}, fmt.Errorf("create menu item: invalid target %q", p.Target)
	}

	ts := now()
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (menu_id, parent_id, type, title, url, target, position, css_class, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		RETURNING `+menuItemColumns,
		p.MenuID, p.ParentID, p.Type, p.Title, p.URL, p.Target, p.Position, p.CSSClass, ts, ts,
	)
	mi, err := scanMenuItem(row)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}
	return mi, nil
}

// UpdateMenuItemLink changes the title and stored URL of a menu item.
func (q *Queries) UpdateMenuItemLink(ctx context.Context, id int64, title, url string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE menu_items SET title = ?, url = ?, updated_at = ? WHERE id = ?`, title, url, now(), id)
	if err != nil {
		return fmt.Errorf("update menu item link: %w", err)
	}
	return requireAffected(res)
}

// DeleteMenuItem removes a menu item; its children and metadata cascade.
func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return requireAffected(res)
}

// GetMenuItemMeta returns one metadata value of a menu item.
func (q *Queries) GetMenuItemMeta(ctx context.Context, itemID int64, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx,
		`SELECT meta_value FROM menu_item_meta WHERE menu_item_id = ? AND meta_key = ?`, itemID, key,
	).Scan(&v)
	if err != nil {
		return "", notFound(err)
	}
	return v, nil
}

// ListMenuItemMeta returns all metadata of a menu item.
func (q *Queries) ListMenuItemMeta(ctx context.Context, itemID int64) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT meta_key, meta_value FROM menu_item_meta WHERE menu_item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list menu item meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan menu item meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// SetMenuItemMeta inserts or replaces a metadata value.
func (q *Queries) SetMenuItemMeta(ctx context.Context, itemID int64, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO menu_item_meta (menu_item_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT (menu_item_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
		itemID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set menu item meta %s: %w", key, err)
	}
	return nil
}

// DeleteMenuItemMeta removes a metadata value. Missing keys are not an error.
func (q *Queries) DeleteMenuItemMeta(ctx context.Context, itemID int64, key string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM menu_item_meta WHERE menu_item_id = ? AND meta_key = ?`, itemID, key)
	if err != nil {
		return fmt.Errorf("delete menu item meta %s: %w", key, err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
