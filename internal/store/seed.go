// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-latest/internal/model"
)

// Seed creates demo terms and posts when doSeed is true and the
// database has no posts yet.
func Seed(ctx context.Context, db *sql.DB, doSeed bool) error {
	if !doSeed {
		return nil
	}

	queries := New(db)
	existing, err := queries.LatestPublishedPosts(ctx, PostQuery{})
	if err != nil {
		return fmt.Errorf("checking for posts: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("content already exists, skipping seed")
		return nil
	}

	return InTx(ctx, db, func(q *Queries) error {
		news, err := q.CreateTerm(ctx, CreateTermParams{Taxonomy: model.TaxonomyCategory, Name: "News"})
		if err != nil {
			return err
		}
		guides, err := q.CreateTerm(ctx, CreateTermParams{Taxonomy: model.TaxonomyCategory, Name: "Guides"})
		if err != nil {
			return err
		}
		release, err := q.CreateTerm(ctx, CreateTermParams{Taxonomy: model.TaxonomyTag, Name: "Release"})
		if err != nil {
			return err
		}

		base := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
		posts := []CreatePostParams{
			{Title: "Welcome", Body: "First post on the site.", TermIDs: []int64{news.ID}},
			{Title: "Version 1.0 released", Body: "The **first** release.", TermIDs: []int64{news.ID, release.ID}},
			{Title: "Getting started", Body: "A short guide.", TermIDs: []int64{guides.ID}},
			{Title: "Version 1.1 released", Body: "Bug fixes.", TermIDs: []int64{release.ID}},
		}
		for i, p := range posts {
			p.Status = model.PostStatusPublished
			p.PublishedAt = base.AddDate(0, i, 0)
			if _, err := q.CreatePost(ctx, p); err != nil {
				return err
			}
		}

		if _, err := q.CreatePost(ctx, CreatePostParams{Title: "Unfinished draft", TermIDs: []int64{news.ID}}); err != nil {
			return err
		}

		slog.Info("seeded demo content", "terms", 3, "posts", len(posts)+1)
		return nil
	})
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
