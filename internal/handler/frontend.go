// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/service"
	"github.com/olegiv/ocms-latest/internal/store"
	"github.com/olegiv/ocms-latest/web"
)

// frontendPages are the page templates rendered inside base.html.
var frontendPages = []string{"home", "post", "notfound"}

// FrontendHandler handles public-facing pages.
type FrontendHandler struct {
	queries  *store.Queries
	menus    *service.MenuService
	pages    map[string]*template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	siteName string
	homeURL  string
	logger   *slog.Logger
}

// NewFrontendHandler creates a new FrontendHandler with the embedded templates.
func NewFrontendHandler(queries *store.Queries, menus *service.MenuService, siteName, homeURL string, logger *slog.Logger) (*FrontendHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := template.ParseFS(web.Templates, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pages := make(map[string]*template.Template, len(frontendPages))
	for _, name := range frontendPages {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base template: %w", err)
		}
		if _, err := t.ParseFS(web.Templates, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = t
	}

	return &FrontendHandler{
		queries:  queries,
		menus:    menus,
		pages:    pages,
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
		siteName: siteName,
		homeURL:  homeURL,
		logger:   logger,
	}, nil
}

// BaseTemplateData is shared by every frontend page.
type BaseTemplateData struct {
	Title     string
	SiteName  string
	HomeURL   string
	BodyClass string
	Menu      []service.MenuEntry
}

// PostView is a post prepared for templates.
type PostView struct {
	ID            int64
	PostType      string
	Title         string
	URL           string
	Body          template.HTML
	PublishedISO  string
	PublishedDate string
	Terms         []model.Term
}

// HomeData holds data for the home template.
type HomeData struct {
	BaseTemplateData
	Posts []PostView
}

// PostData holds data for the post template.
type PostData struct {
	BaseTemplateData
	Post PostView
}

// Home handles GET / and lists the latest published posts.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	posts, err := h.queries.LatestPublishedPosts(ctx, store.PostQuery{
		PostType: model.PostTypePost,
		Limit:    HomePostsLimit,
	})
	if err != nil {
		h.logger.Error("failed to list latest posts", "error", err)
		h.renderError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, h.postToView(p))
	}

	base := h.baseData(ctx, "")
	base.BodyClass = "home"
	h.render(w, http.StatusOK, "home", HomeData{BaseTemplateData: base, Posts: views})
}

// Post handles GET /{slug}, the permalink page of a published post.
func (h *FrontendHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	post, err := h.queries.GetPublishedPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		h.logger.Error("failed to get post", "error", err, "slug", slug)
		h.renderError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	view := h.postToView(post)

	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(post.Body), &buf); err != nil {
		h.logger.Error("failed to render post body", "error", err, "post_id", post.ID)
		h.renderError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	view.Body = template.HTML(h.policy.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized above

	terms, err := h.queries.ListPostTerms(ctx, post.ID)
	if err != nil {
		h.logger.Warn("failed to list post terms", "error", err, "post_id", post.ID)
	}
	view.Terms = terms

	base := h.baseData(ctx, post.Title)
	base.BodyClass = "single-" + post.PostType
	h.render(w, http.StatusOK, "post", PostData{BaseTemplateData: base, Post: view})
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	base := h.baseData(r.Context(), "Page Not Found")
	base.BodyClass = "error-404"
	h.render(w, http.StatusNotFound, "notfound", base)
}

func (h *FrontendHandler) postToView(p model.Post) PostView {
	v := PostView{
		ID:       p.ID,
		PostType: p.PostType,
		Title:    p.Title,
		URL:      p.Permalink(h.homeURL),
	}
	if p.PublishedAt.Valid {
		v.PublishedISO = p.PublishedAt.Time.UTC().Format(time.RFC3339)
		v.PublishedDate = p.PublishedAt.Time.UTC().Format("January 2, 2006")
	}
	return v
}

// baseData loads the main menu. A menu failure degrades to no menu.
func (h *FrontendHandler) baseData(ctx context.Context, title string) BaseTemplateData {
	menu, err := h.menus.GetMenu(ctx, model.MenuMain)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Warn("failed to load menu", "error", err, "category", model.EventCategoryMenu)
	}
	return BaseTemplateData{
		Title:    title,
		SiteName: h.siteName,
		HomeURL:  h.homeURL,
		Menu:     menu,
	}
}

// render executes a page template into a buffer first so template errors
// never produce a partial response.
func (h *FrontendHandler) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := h.pages[page]
	if !ok {
		h.logger.Error("unknown template", "template", page)
		h.renderError(w, http.StatusInternalServerError, "Template rendering error")
		return
	}

	buf := new(bytes.Buffer)
	if err := t.ExecuteTemplate(buf, "base", data); err != nil {
		h.logger.Error("failed to render template", "template", page, "error", err)
		h.renderError(w, http.StatusInternalServerError, "Template rendering error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError renders a minimal error page.
func (h *FrontendHandler) renderError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Error</title></head>
<body>
<h1>%d - %s</h1>
<p>An error occurred while processing your request.</p>
</body>
</html>`, statusCode, template.HTMLEscapeString(message))
}
