// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Post statuses
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post types
const (
	PostTypePost = "post"
	PostTypePage = "page"
)

// PostTypes lists the public post types with their singular labels.
var PostTypes = map[string]string{
	PostTypePost: "Post",
	PostTypePage: "Page",
}

// Post is a publishable content item.
type Post struct {
	ID          int64
	PostType    string
	Status      string
	Title       string
	Slug        string
	Body        string
	PublishedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPublished reports whether the post is eligible for public listing.
func (p Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// Permalink returns the canonical URL of the post under home.
func (p Post) Permalink(home string) string {
	return home + "/" + p.Slug
}
