// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/rewrite"
	"github.com/olegiv/ocms-latest/internal/store"
)

// Resolver redirects latest-post paths to the newest matching post.
type Resolver struct {
	terms  TermLookup
	posts  PostFinder
	home   string
	logger *slog.Logger
}

// NewResolver creates a Resolver. home is the site root used for
// permalinks and as the fallback target.
func NewResolver(terms TermLookup, posts PostFinder, home string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		terms:  terms,
		posts:  posts,
		home:   strings.TrimRight(home, "/"),
		logger: logger,
	}
}

// Home returns the fallback redirect target.
func (r *Resolver) Home() string {
	if r.home == "" {
		return "/"
	}
	return r.home
}

// Resolve returns the permalink of the newest published post in the term
// with the given slug. An empty or unknown slug searches every post. The
// second result is false when nothing was found, in which case the URL is
// the site root. Store failures count as nothing found.
func (r *Resolver) Resolve(ctx context.Context, taxonomy model.TaxonomyKind, slug string) (string, bool) {
	q := store.PostQuery{PostType: store.PostTypeAny, Limit: 1}

	if slug != "" {
		term, err := r.terms.GetTermBySlug(ctx, taxonomy, slug)
		switch {
		case err == nil:
			q.TermID = term.ID
		case errors.Is(err, store.ErrNotFound):
			r.logger.Debug("latest post term not found, using all posts",
				"taxonomy", taxonomy, "slug", slug)
		default:
			r.logger.Error("latest post term lookup failed",
				"category", model.EventCategoryTaxonomy, "taxonomy", taxonomy, "slug", slug, "error", err)
			return r.Home(), false
		}
	}

	r.logger.Debug("latest post query",
		"post_type", q.PostType, "status", model.PostStatusPublished,
		"taxonomy", taxonomy, "slug", slug, "term_id", q.TermID)

	posts, err := r.posts.LatestPublishedPosts(ctx, q)
	if err != nil {
		r.logger.Error("latest post query failed",
			"category", model.EventCategoryContent, "term_id", q.TermID, "error", err)
		return r.Home(), false
	}
	if len(posts) == 0 {
		return r.Home(), false
	}

	post := posts[0]
	r.logger.Debug("latest post found", "post_id", post.ID, "published_at", post.PublishedAt.Time)
	return post.Permalink(r.home), true
}

// ServeRewrite implements rewrite.RouteHandler. It always answers with a
// 302 redirect.
func (r *Resolver) ServeRewrite(w http.ResponseWriter, req *http.Request, vars rewrite.Vars) {
	if vars.Get(QueryVarRedirect) == "" {
		http.NotFound(w, req)
		return
	}

	taxonomy := model.ParseTaxonomyKind(vars.Get(QueryVarTaxonomy))
	target, _ := r.Resolve(req.Context(), taxonomy, vars.Get(QueryVarTerm))

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, req, target, http.StatusFound)
}
