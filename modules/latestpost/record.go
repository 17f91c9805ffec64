// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/store"
)

// Menu item metadata keys holding a link record.
const (
	MetaPostType = "_latest_post_link_post_type"
	MetaTaxonomy = "_latest_post_link_taxonomy"
	MetaTerm     = "_latest_post_link_term"
)

// ErrMalformedRecord is returned when a menu item lacks a usable link record.
var ErrMalformedRecord = errors.New("malformed latest post link record")

// TermLookup finds taxonomy terms.
type TermLookup interface {
	GetTermBySlug(ctx context.Context, taxonomy model.TaxonomyKind, slug string) (model.Term, error)
	GetTermByID(ctx context.Context, taxonomy model.TaxonomyKind, id int64) (model.Term, error)
}

// PostFinder finds the newest published posts matching a filter.
type PostFinder interface {
	LatestPublishedPosts(ctx context.Context, q store.PostQuery) ([]model.Post, error)
}

// MenuMetaStore reads and writes per-item menu metadata.
type MenuMetaStore interface {
	ListMenuItemMeta(ctx context.Context, itemID int64) (map[string]string, error)
	SetMenuItemMeta(ctx context.Context, itemID int64, key, value string) error
}

// Record is the configuration stored on a latest post link menu item.
type Record struct {
	PostType string             `json:"post_type"`
	Taxonomy model.TaxonomyKind `json:"taxonomy"`
	TermID   int64              `json:"term_id"`
}

// RecordFromMeta parses a record from menu item metadata. All three keys
// must be present and parseable.
func RecordFromMeta(meta map[string]string) (Record, error) {
	postType, ok1 := meta[MetaPostType]
	taxonomy, ok2 := meta[MetaTaxonomy]
	termID, ok3 := meta[MetaTerm]
	if !ok1 || !ok2 || !ok3 {
		return Record{}, fmt.Errorf("%w: missing keys", ErrMalformedRecord)
	}

	postType = strings.TrimSpace(postType)
	taxonomy = strings.TrimSpace(taxonomy)
	if postType == "" || taxonomy == "" {
		return Record{}, fmt.Errorf("%w: empty post type or taxonomy", ErrMalformedRecord)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(termID), 10, 64)
	if err != nil || id <= 0 {
		return Record{}, fmt.Errorf("%w: term %q", ErrMalformedRecord, termID)
	}

	return Record{
		PostType: postType,
		Taxonomy: model.ParseTaxonomyKind(taxonomy),
		TermID:   id,
	}, nil
}

// Validate checks a record before it is stored.
func (r Record) Validate() error {
	if strings.TrimSpace(r.PostType) == "" {
		return fmt.Errorf("%w: post type is required", ErrMalformedRecord)
	}
	if strings.Contains(r.PostType, "|") {
		return fmt.Errorf("%w: post type %q", ErrMalformedRecord, r.PostType)
	}
	if r.TermID <= 0 {
		return fmt.Errorf("%w: term is required", ErrMalformedRecord)
	}
	return nil
}

// Meta returns the metadata representation of the record.
func (r Record) Meta() map[string]string {
	return map[string]string{
		MetaPostType: r.PostType,
		MetaTaxonomy: r.Taxonomy.String(),
		MetaTerm:     strconv.FormatInt(r.TermID, 10),
	}
}

// Save writes the record to a menu item.
func (r Record) Save(ctx context.Context, meta MenuMetaStore, itemID int64) error {
	for _, key := range []string{MetaPostType, MetaTaxonomy, MetaTerm} {
		if err := meta.SetMenuItemMeta(ctx, itemID, key, r.Meta()[key]); err != nil {
			return err
		}
	}
	return nil
}

// LoadRecord reads the record stored on a menu item.
func LoadRecord(ctx context.Context, meta MenuMetaStore, itemID int64) (Record, error) {
	values, err := meta.ListMenuItemMeta(ctx, itemID)
	if err != nil {
		return Record{}, err
	}
	return RecordFromMeta(values)
}

// ParseDescription splits the "post_type|taxonomy" form used by menu
// editors into its parts.
func ParseDescription(desc string) (string, model.TaxonomyKind, error) {
	postType, taxonomy, ok := strings.Cut(desc, "|")
	postType = strings.TrimSpace(postType)
	if !ok || postType == "" || strings.TrimSpace(taxonomy) == "" {
		return "", "", fmt.Errorf("%w: description %q", ErrMalformedRecord, desc)
	}
	return postType, model.ParseTaxonomyKind(strings.TrimSpace(taxonomy)), nil
}

// Description returns the "post_type|taxonomy" form of the record.
func (r Record) Description() string {
	return r.PostType + "|" + r.Taxonomy.String()
}

// Path returns the site-relative path that resolves to the latest post
// for the term slug, with a trailing slash.
func Path(taxonomy model.TaxonomyKind, slug string) string {
	return taxonomy.PathPrefix() + slug + "/latest/"
}

// URL returns the absolute link for the term slug under home.
func URL(home string, taxonomy model.TaxonomyKind, slug string) string {
	return strings.TrimRight(home, "/") + "/" + Path(taxonomy, slug)
}

var titleCaser = cases.Title(language.English)

// PostTypeLabel returns the singular label of a post type.
func PostTypeLabel(postType string) string {
	if label, ok := model.PostTypes[postType]; ok {
		return label
	}
	return titleCaser.String(strings.ReplaceAll(postType, "_", " "))
}

// DefaultTitle builds the menu title offered for a new link, such as
// "Latest Post in News" or "Latest Post with Release".
func DefaultTitle(postType string, taxonomy model.TaxonomyKind, termName string) string {
	prep := "in"
	if taxonomy == model.TaxonomyTag {
		prep = "with"
	}
	return fmt.Sprintf("Latest %s %s %s", PostTypeLabel(postType), prep, termName)
}
