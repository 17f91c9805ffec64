// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/util"
)

// PostTypeAny matches every post type in a PostQuery.
const PostTypeAny = "any"

const postColumns = `p.id, p.post_type, p.status, p.title, p.slug, p.body, p.published_at, p.created_at, p.updated_at`

func scanPost(s rowScanner) (model.Post, error) {
	var p model.Post
	err := s.Scan(&p.ID, &p.PostType, &p.Status, &p.Title, &p.Slug, &p.Body,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePostParams holds the fields for a new post.
type CreatePostParams struct {
	PostType    string
	Status      string
	Title       string
	Slug        string
	Body        string
	PublishedAt time.Time // zero means "now" for published posts
	TermIDs     []int64
}

// CreatePost inserts a post and links it to TermIDs.
func (q *Queries) CreatePost(ctx context.Context, p CreatePostParams) (model.Post, error) {
	if strings.TrimSpace(p.Title) == "" {
		return model.Post{}, fmt.Errorf("create post: title is required")
	}
	if p.PostType == "" {
		p.PostType = model.PostTypePost
	}
	if p.Status == "" {
		p.Status = model.PostStatusDraft
	}
	if p.Slug == "" {
		p.Slug = util.SlugifyOr(p.Title, "post")
	}

	var publishedAt sql.NullTime
	if p.Status == model.PostStatusPublished {
		at := p.PublishedAt
		if at.IsZero() {
			at = now()
		}
		publishedAt = sql.NullTime{Time: at.UTC().Truncate(time.Second), Valid: true}
	}

	ts := now()
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (post_type, status, title, slug, body, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		p.PostType, p.Status, p.Title, p.Slug, p.Body, publishedAt, ts, ts,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}

	for _, termID := range p.TermIDs {
		if err := q.AttachTerm(ctx, id, termID); err != nil {
			return model.Post{}, err
		}
	}

	return q.GetPostByID(ctx, id)
}

// AttachTerm associates a post with a term.
func (q *Queries) AttachTerm(ctx context.Context, postID, termID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_terms (post_id, term_id) VALUES (?, ?)`, postID, termID)
	if err != nil {
		return fmt.Errorf("attach term %d to post %d: %w", termID, postID, err)
	}
	return nil
}

// GetPostByID returns a post of any status.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		return model.Post{}, notFound(err)
	}
	return p, nil
}

// GetPublishedPostBySlug returns a published post by slug.
func (q *Queries) GetPublishedPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.slug = ? AND p.status = ?`,
		slug, model.PostStatusPublished)
	p, err := scanPost(row)
	if err != nil {
		return model.Post{}, notFound(err)
	}
	return p, nil
}

// ListPostTerms returns the terms attached to a post, categories first.
func (q *Queries) ListPostTerms(ctx context.Context, postID int64) ([]model.Term, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.taxonomy, t.name, t.slug, t.description, t.created_at, t.updated_at
		FROM terms t
		JOIN post_terms pt ON pt.term_id = t.id
		WHERE pt.post_id = ?
		ORDER BY t.taxonomy, t.name`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var terms []model.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// PostQuery filters LatestPublishedPosts.
type PostQuery struct {
	PostType string // "" or PostTypeAny matches every type
	TermID   int64  // 0 disables the term filter
	Limit    int    // <= 0 means 1
}

// LatestPublishedPosts returns published posts, newest first. Posts with the
// same publish time are ordered by ID descending so the result is deterministic.
func (q *Queries) LatestPublishedPosts(ctx context.Context, pq PostQuery) ([]model.Post, error) {
	var sb strings.Builder
	args := []any{model.PostStatusPublished}

	sb.WriteString(`SELECT ` + postColumns + ` FROM posts p WHERE p.status = ? AND p.published_at IS NOT NULL`)
	if pq.PostType != "" && pq.PostType != PostTypeAny {
		sb.WriteString(` AND p.post_type = ?`)
		args = append(args, pq.PostType)
	}
	if pq.TermID > 0 {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM post_terms pt WHERE pt.post_id = p.id AND pt.term_id = ?)`)
		args = append(args, pq.TermID)
	}
	limit := pq.Limit
	if limit <= 0 {
		limit = 1
	}
	sb.WriteString(` ORDER BY p.published_at DESC, p.id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("latest published posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
