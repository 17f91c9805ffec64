// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the store, services and modules.
package model

import "time"

// TaxonomyKind identifies a classification system for posts.
type TaxonomyKind string

// Supported taxonomies.
const (
	TaxonomyCategory TaxonomyKind = "category"
	TaxonomyTag      TaxonomyKind = "tag"
)

// ParseTaxonomyKind maps a wire value to a TaxonomyKind.
// Anything other than "tag" is a category.
func ParseTaxonomyKind(s string) TaxonomyKind {
	if s == string(TaxonomyTag) {
		return TaxonomyTag
	}
	return TaxonomyCategory
}

// IsValid reports whether k is one of the supported taxonomies.
func (k TaxonomyKind) IsValid() bool {
	return k == TaxonomyCategory || k == TaxonomyTag
}

// String returns the wire value.
func (k TaxonomyKind) String() string { return string(k) }

// PathPrefix returns the URL prefix for the taxonomy ("tag/" or "").
func (k TaxonomyKind) PathPrefix() string {
	if k == TaxonomyTag {
		return "tag/"
	}
	return ""
}

// Term is a classification value within a taxonomy.
// ID is stable; Slug is unique per taxonomy and may change.
type Term struct {
	ID          int64
	Taxonomy    TaxonomyKind
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
