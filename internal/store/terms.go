// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/util"
)

const termColumns = `id, taxonomy, name, slug, description, created_at, updated_at`

func scanTerm(s rowScanner) (model.Term, error) {
	var t model.Term
	var taxonomy string
	err := s.Scan(&t.ID, &taxonomy, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	t.Taxonomy = model.TaxonomyKind(taxonomy)
	return t, err
}

// CreateTermParams holds the fields for a new term.
// An empty Slug is derived from Name; collisions get a numeric suffix.
type CreateTermParams struct {
	Taxonomy    model.TaxonomyKind
	Name        string
	Slug        string
	Description string
}

// CreateTerm inserts a term.
func (q *Queries) CreateTerm(ctx context.Context, p CreateTermParams) (model.Term, error) {
	if !p.Taxonomy.IsValid() {
		return model.Term{}, fmt.Errorf("create term: invalid taxonomy %q", p.Taxonomy)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.Term{}, fmt.Errorf("create term: name is required")
	}

	base := p.Slug
	if base == "" {
		base = util.SlugifyOr(name, "term")
	}
	slug, err := q.uniqueTermSlug(ctx, p.Taxonomy, base)
	if err != nil {
		return model.Term{}, err
	}

	ts := now()
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO terms (taxonomy, name, slug, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+termColumns,
		p.Taxonomy, name, slug, p.Description, ts, ts,
	)
	t, err := scanTerm(row)
	if err != nil {
		return model.Term{}, fmt.Errorf("create term: %w", err)
	}
	return t, nil
}

func (q *Queries) uniqueTermSlug(ctx context.Context, taxonomy model.TaxonomyKind, base string) (string, error) {
	for n := 1; ; n++ {
		candidate := util.NextSlug(base, n)
		var count int
		err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM terms WHERE taxonomy = ? AND slug = ?`, taxonomy, candidate,
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("check term slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
}

// GetTermBySlug finds a term by slug within a taxonomy.
func (q *Queries) GetTermBySlug(ctx context.Context, taxonomy model.TaxonomyKind, slug string) (model.Term, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug)
	t, err := scanTerm(row)
	if err != nil {
		return model.Term{}, notFound(err)
	}
	return t, nil
}

// GetTermByID finds a term by ID within a taxonomy. A term that exists
// in a different taxonomy is reported as ErrNotFound.
func (q *Queries) GetTermByID(ctx context.Context, taxonomy model.TaxonomyKind, id int64) (model.Term, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND id = ?`, taxonomy, id)
	t, err := scanTerm(row)
	if err != nil {
		return model.Term{}, notFound(err)
	}
	return t, nil
}

// ListTerms returns all terms of a taxonomy ordered by name.
func (q *Queries) ListTerms(ctx context.Context, taxonomy model.TaxonomyKind) ([]model.Term, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? ORDER BY name, id`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
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

// UpdateTermSlug changes a term's slug. Menu links keyed by term ID pick
// up the new slug on their next render.
func (q *Queries) UpdateTermSlug(ctx context.Context, id int64, slug string) (model.Term, error) {
	if !util.IsValidSlug(slug) {
		return model.Term{}, fmt.Errorf("update term: invalid slug %q", slug)
	}
	row := q.db.QueryRowContext(ctx, `
		UPDATE terms SET slug = ?, updated_at = ? WHERE id = ?
		RETURNING `+termColumns,
		slug, now(), id,
	)
	t, err := scanTerm(row)
	if err != nil {
		return model.Term{}, notFound(err)
	}
	return t, nil
}

// DeleteTerm removes a term and its post associations.
func (q *Queries) DeleteTerm(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM terms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
