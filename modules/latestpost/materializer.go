// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
)

// Materializer fills in the URL of latest post link menu entries from
// the current slug of their term.
type Materializer struct {
	terms  TermLookup
	meta   MenuMetaStore
	home   string
	logger *slog.Logger
}

// NewMaterializer creates a Materializer producing links under home.
func NewMaterializer(terms TermLookup, meta MenuMetaStore, home string, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		terms:  terms,
		meta:   meta,
		home:   strings.TrimRight(home, "/"),
		logger: logger,
	}
}

// URLFor returns the link for a record using its term's current slug.
func (m *Materializer) URLFor(ctx context.Context, rec Record) (string, error) {
	term, err := m.terms.GetTermByID(ctx, rec.Taxonomy, rec.TermID)
	if err != nil {
		return "", err
	}
	return URL(m.home, rec.Taxonomy, term.Slug), nil
}

// RenderMenuEntries implements service.MenuEntryRenderer. Entries whose
// record is malformed or whose term no longer exists keep their stored URL.
func (m *Materializer) RenderMenuEntries(ctx context.Context, entries []*service.MenuEntry) {
	for _, e := range entries {
		if e == nil || e.Type != model.MenuItemTypeLatestPostLink {
			continue
		}

		rec, err := LoadRecord(ctx, m.meta, e.ID)
		if err != nil {
			m.logFailure(e, "latest post link record unusable", err)
			continue
		}

		url, err := m.URLFor(ctx, rec)
		if err != nil {
			m.logFailure(e, "latest post link term unavailable", err)
			continue
		}
		e.URL = url
	}
}

func (m *Materializer) logFailure(e *service.MenuEntry, msg string, err error) {
	if errors.Is(err, ErrMalformedRecord) || errors.Is(err, store.ErrNotFound) {
		m.logger.Debug(msg, "menu_item_id", e.ID, "error", err)
		return
	}
	m.logger.Warn(msg, "category", model.EventCategoryMenu, "menu_item_id", e.ID, "error", err)
}
