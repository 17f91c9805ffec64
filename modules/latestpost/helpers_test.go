// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/module"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/internal/testutil/moduleutil"
)

const home = moduleutil.TestSiteURL

// fixture is a small content set:
//
//	news (category):   "Hello" Jan 5
//	release (tag):     "Version 1.0" Jan 10, "Version 1.1" Feb 3
//	untagged:          "Roadmap" Mar 1 (newest overall)
//	draft in release:  "Version 2.0" Apr 1
type fixture struct {
	ctx     *module.Context
	q       *store.Queries
	news    model.Term
	release model.Term
	hello   model.Post
	v10     model.Post
	v11     model.Post
	roadmap model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mctx := moduleutil.TestModuleContext(t)
	q := mctx.Store
	ctx := context.Background()

	f := &fixture{ctx: mctx, q: q}
	var err error
	f.news, err = q.CreateTerm(ctx, store.CreateTermParams{Taxonomy: model.TaxonomyCategory, Name: "News"})
	require.NoError(t, err)
	f.release, err = q.CreateTerm(ctx, store.CreateTermParams{Taxonomy: model.TaxonomyTag, Name: "Release"})
	require.NoError(t, err)

	post := func(title string, at time.Time, status string, terms ...int64) model.Post {
		p, err := q.CreatePost(ctx, store.CreatePostParams{
			Title:       title,
			Status:      status,
			PublishedAt: at,
			TermIDs:     terms,
		})
		require.NoError(t, err)
		return p
	}

	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 12, 0, 0, 0, time.UTC) }
	f.hello = post("Hello", day(time.January, 5), model.PostStatusPublished, f.news.ID)
	f.v10 = post("Version 1.0", day(time.January, 10), model.PostStatusPublished, f.release.ID)
	f.v11 = post("Version 1.1", day(time.February, 3), model.PostStatusPublished, f.release.ID)
	f.roadmap = post("Roadmap", day(time.March, 1), model.PostStatusPublished)
	post("Version 2.0", day(time.April, 1), model.PostStatusDraft, f.release.ID)

	return f
}

// initModule creates and initializes the module over the fixture context.
func (f *fixture) initModule(t *testing.T) *Module {
	t.Helper()
	m := New()
	require.NoError(t, m.Init(f.ctx))
	return m
}

// addLink stores a latest post link menu item in the main menu.
func (f *fixture) addLink(t *testing.T, title string, rec Record) model.MenuItem {
	t.Helper()
	ctx := context.Background()
	menu, err := f.q.GetMenuBySlug(ctx, model.MenuMain)
	require.NoError(t, err)

	item, err := f.q.CreateMenuItem(ctx, store.CreateMenuItemParams{
		MenuID: menu.ID,
		Type:   model.MenuItemTypeLatestPostLink,
		Title:  title,
		URL:    "/stored",
	})
	require.NoError(t, err)
	require.NoError(t, rec.Save(ctx, f.q, item.ID))
	return item
}

// findEntry returns the URL of the flat entry with id.
func findEntry(t *testing.T, entries []*service.MenuEntry, id int64) string {
	t.Helper()
	for _, e := range entries {
		if e.ID == id {
			return e.URL
		}
	}
	t.Fatalf("menu entry %d not found", id)
	return ""
}

// findTreeEntry searches a rendered menu tree for id.
func findTreeEntry(tree []service.MenuEntry, id int64) string {
	for _, e := range tree {
		if e.ID == id {
			return e.URL
		}
		if url := findTreeEntry(e.Children, id); url != "" {
			return url
		}
	}
	return ""
}
