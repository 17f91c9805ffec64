// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/internal/util"
)

const maxRequestBody = 64 << 10

// TermOption is one entry of the term picker.
type TermOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ItemRequest is the body of create and update requests. The record can be
// given as separate fields or, as menu editors send it, as a
// "post_type|taxonomy" description plus term_id.
type ItemRequest struct {
	Title       string `json:"title"`
	PostType    string `json:"post_type"`
	Taxonomy    string `json:"taxonomy"`
	TermID      int64  `json:"term_id"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Position    *int   `json:"position,omitempty"`
	Target      string `json:"target,omitempty"`
}

// record builds the link record from the request.
func (req ItemRequest) record() (Record, error) {
	rec := Record{
		PostType: strings.TrimSpace(req.PostType),
		Taxonomy: model.ParseTaxonomyKind(strings.TrimSpace(req.Taxonomy)),
		TermID:   req.TermID,
	}
	if rec.PostType == "" && req.Description != "" {
		postType, taxonomy, err := ParseDescription(req.Description)
		if err != nil {
			return Record{}, err
		}
		rec.PostType = postType
		rec.Taxonomy = taxonomy
	}
	if rec.PostType == "" {
		rec.PostType = model.PostTypePost
	}
	return rec, rec.Validate()
}

// ItemResponse describes a latest post link menu item.
type ItemResponse struct {
	ID          int64   `json:"id"`
	MenuID      int64   `json:"menu_id"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PreviewURL  string  `json:"preview_url,omitempty"`
	Target      string  `json:"target"`
	Position    int     `json:"position"`
	Record      *Record `json:"record,omitempty"`
	Description string  `json:"description,omitempty"`
	RecordError string  `json:"record_error,omitempty"`
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object", nil)
		return ItemRequest{}, false
	}
	return req, true
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid menu item ID", nil)
		return 0, false
	}
	return id, true
}

// handleListTerms handles GET /admin/latest-post/terms.
func (m *Module) handleListTerms(w http.ResponseWriter, r *http.Request) {
	postType := r.URL.Query().Get("post_type")
	if postType == "" {
		postType = model.PostTypePost
	}
	if _, ok := model.PostTypes[postType]; !ok {
		middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_post_type", "Unknown post type",
			map[string]string{"post_type": postType})
		return
	}
	taxonomy := model.ParseTaxonomyKind(r.URL.Query().Get("taxonomy"))

	terms, err := m.ctx.Store.ListTerms(r.Context(), taxonomy)
	if err != nil {
		m.ctx.Logger.Error("failed to list terms", "category", model.EventCategoryTaxonomy, "taxonomy", taxonomy, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to list terms", nil)
		return
	}

	options := make([]TermOption, 0, len(terms))
	for _, t := range terms {
		options = append(options, TermOption{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"post_type": postType,
		"taxonomy":  taxonomy,
		"terms":     options,
	})
}

// handleCreateItem handles POST /admin/latest-post/menus/{menuSlug}/items.
func (m *Module) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	menuSlug := chi.URLParam(r, "menuSlug")

	menu, err := m.ctx.Store.GetMenuBySlug(ctx, menuSlug)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Menu not found", nil)
		return
	}
	if err != nil {
		m.ctx.Logger.Error("failed to load menu", "category", model.EventCategoryMenu, "menu", menuSlug, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load menu", nil)
		return
	}

	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}
	rec, ok := m.validRecord(w, req)
	if !ok {
		return
	}
	term, ok := m.recordTerm(w, r, rec)
	if !ok {
		return
	}

	if req.Target != "" && !model.IsValidTarget(req.Target) {
		middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "invalid_target", "Invalid link target", nil)
		return
	}

	items, err := m.ctx.Store.ListMenuItems(ctx, menu.ID)
	if err != nil {
		m.ctx.Logger.Error("failed to list menu items", "category", model.EventCategoryMenu, "menu", menuSlug, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load menu", nil)
		return
	}

	params := store.CreateMenuItemParams{
		MenuID:   menu.ID,
		ParentID: util.NullInt64FromPtr(req.ParentID),
		Type:     model.MenuItemTypeLatestPostLink,
		Title:    m.title(req.Title, rec, term),
		URL:      URL(m.ctx.Config.HomeURL(), rec.Taxonomy, term.Slug),
		Target:   req.Target,
		Position: len(items),
	}
	if req.Position != nil {
		params.Position = *req.Position
	}
	if params.ParentID.Valid && !hasItem(items, params.ParentID.Int64) {
		middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "invalid_parent", "Parent item is not in this menu", nil)
		return
	}

	var item model.MenuItem
	err = store.InTx(ctx, m.ctx.DB, func(q *store.Queries) error {
		var err error
		item, err = q.CreateMenuItem(ctx, params)
		if err != nil {
			return err
		}
		return rec.Save(ctx, q, item.ID)
	})
	if err != nil {
		m.ctx.Logger.Error("failed to create latest post link", "category", model.EventCategoryMenu, "menu", menuSlug, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to create menu item", nil)
		return
	}

	m.menuSaved(r, "latest post link created", item.ID)
	middleware.WriteJSON(w, http.StatusCreated, m.itemResponse(r, item))
}

// handleGetItem handles GET /admin/latest-post/menu-items/{id}.
func (m *Module) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := m.linkItem(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, m.itemResponse(r, item))
}

// handleUpdateItem handles PUT /admin/latest-post/menu-items/{id}.
func (m *Module) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, ok := m.linkItem(w, r)
	if !ok {
		return
	}

	req, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}
	rec, ok := m.validRecord(w, req)
	if !ok {
		return
	}
	term, ok := m.recordTerm(w, r, rec)
	if !ok {
		return
	}

	title := item.Title
	if strings.TrimSpace(req.Title) != "" {
		title = m.title(req.Title, rec, term)
	}
	url := URL(m.ctx.Config.HomeURL(), rec.Taxonomy, term.Slug)

	err := store.InTx(ctx, m.ctx.DB, func(q *store.Queries) error {
		if err := q.UpdateMenuItemLink(ctx, item.ID, title, url); err != nil {
			return err
		}
		return rec.Save(ctx, q, item.ID)
	})
	if err != nil {
		m.ctx.Logger.Error("failed to update latest post link", "category", model.EventCategoryMenu, "menu_item_id", item.ID, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to update menu item", nil)
		return
	}

	item.Title = title
	item.URL = url
	m.menuSaved(r, "latest post link updated", item.ID)
	middleware.WriteJSON(w, http.StatusOK, m.itemResponse(r, item))
}

// handleDeleteItem handles DELETE /admin/latest-post/menu-items/{id}.
func (m *Module) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, ok := m.linkItem(w, r)
	if !ok {
		return
	}

	if err := m.ctx.Store.DeleteMenuItem(r.Context(), item.ID); err != nil {
		m.ctx.Logger.Error("failed to delete latest post link", "category", model.EventCategoryMenu, "menu_item_id", item.ID, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete menu item", nil)
		return
	}

	m.menuSaved(r, "latest post link deleted", item.ID)
	w.WriteHeader(http.StatusNoContent)
}

// linkItem loads the item named by the {id} parameter and checks that it is
// a latest post link.
func (m *Module) linkItem(w http.ResponseWriter, r *http.Request) (model.MenuItem, bool) {
	id, ok := itemIDParam(w, r)
	if !ok {
		return model.MenuItem{}, false
	}

	item, err := m.ctx.Store.GetMenuItem(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && item.Type != model.MenuItemTypeLatestPostLink) {
		middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "Latest post link not found", nil)
		return model.MenuItem{}, false
	}
	if err != nil {
		m.ctx.Logger.Error("failed to load menu item", "category", model.EventCategoryMenu, "menu_item_id", id, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load menu item", nil)
		return model.MenuItem{}, false
	}
	return item, true
}

func (m *Module) validRecord(w http.ResponseWriter, req ItemRequest) (Record, bool) {
	rec, err := req.record()
	if err != nil {
		middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "invalid_record", err.Error(), nil)
		return Record{}, false
	}
	if _, ok := model.PostTypes[rec.PostType]; !ok {
		middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "invalid_post_type", "Unknown post type",
			map[string]string{"post_type": rec.PostType})
		return Record{}, false
	}
	return rec, true
}

func (m *Module) recordTerm(w http.ResponseWriter, r *http.Request, rec Record) (model.Term, bool) {
	term, err := m.ctx.Store.GetTermByID(r.Context(), rec.Taxonomy, rec.TermID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "invalid_term", "Term not found in taxonomy",
			map[string]string{"taxonomy": rec.Taxonomy.String(), "term_id": strconv.FormatInt(rec.TermID, 10)})
		return model.Term{}, false
	}
	if err != nil {
		m.ctx.Logger.Error("failed to load term", "category", model.EventCategoryTaxonomy, "term_id", rec.TermID, "error", err)
		middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load term", nil)
		return model.Term{}, false
	}
	return term, true
}

// title sanitizes a submitted title, falling back to the default title.
func (m *Module) title(submitted string, rec Record, term model.Term) string {
	// Sanitize escapes entities; titles are stored as plain text.
	title := html.UnescapeString(m.policy.Sanitize(submitted))
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return DefaultTitle(rec.PostType, rec.Taxonomy, term.Name)
	}
	return title
}

// menuSaved runs after every menu change: rules are registered again and
// cached menu rows are dropped.
func (m *Module) menuSaved(r *http.Request, message string, itemID int64) {
	ctx := r.Context()
	if err := m.registerRules(); err != nil {
		m.ctx.Logger.Warn("re-registering latest post rules failed", "category", model.EventCategoryConfig, "error", err)
	}
	m.ctx.Menus.InvalidateCache(ctx, "")

	if m.ctx.Events != nil {
		_ = m.ctx.Events.LogMenuEvent(ctx, model.EventLevelInfo, message, map[string]any{
			"menu_item_id": itemID,
			"request_id":   middleware.GetRequestID(ctx),
		})
	}
}

func (m *Module) itemResponse(r *http.Request, item model.MenuItem) ItemResponse {
	resp := ItemResponse{
		ID:       item.ID,
		MenuID:   item.MenuID,
		ParentID: util.PtrFromNullInt64(item.ParentID),
		Title:    item.Title,
		URL:      item.URL,
		Target:   item.Target,
		Position: item.Position,
	}

	rec, err := LoadRecord(r.Context(), m.ctx.Store, item.ID)
	if err != nil {
		resp.RecordError = err.Error()
		return resp
	}
	resp.Record = &rec
	resp.Description = rec.Description()

	if url, err := m.materializer.URLFor(r.Context(), rec); err == nil {
		resp.PreviewURL = url
	} else {
		resp.RecordError = err.Error()
	}
	return resp
}

func hasItem(items []model.MenuItem, id int64) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
