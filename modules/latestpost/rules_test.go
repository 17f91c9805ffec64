// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/rewrite"
	"github.com/olegiv/ocms-latest/internal/testutil"
)

var noopHandler = rewrite.RouteHandlerFunc(func(http.ResponseWriter, *http.Request, rewrite.Vars) {})

func TestRegisterRulesIdempotent(t *testing.T) {
	rt := rewrite.NewRouter(testutil.TestLoggerSilent())

	added, err := RegisterRules(rt, noopHandler)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	for range 3 {
		added, err = RegisterRules(rt, noopHandler)
		require.NoError(t, err)
		assert.Zero(t, added)
	}

	rules := rt.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, TagPattern, rules[0].Pattern)
	assert.Equal(t, CategoryPattern, rules[1].Pattern)
	for _, r := range rules {
		assert.Equal(t, rewrite.PriorityTop, r.Priority)
		assert.Equal(t, ModuleName, r.Owner)
	}
}

func TestRulesAheadOfExistingBottomRules(t *testing.T) {
	rt := rewrite.NewRouter(testutil.TestLoggerSilent())
	_, err := rt.Add(rewrite.Rule{Pattern: `^([^/]+)/?$`, Query: "page=$1", Priority: rewrite.PriorityBottom})
	require.NoError(t, err)

	_, err = RegisterRules(rt, noopHandler)
	require.NoError(t, err)

	m, ok := rt.Match("/news/latest")
	require.True(t, ok)
	assert.Equal(t, CategoryPattern, m.Rule.Pattern)
}

func TestRuleMatching(t *testing.T) {
	rt := rewrite.NewRouter(testutil.TestLoggerSilent())
	_, err := RegisterRules(rt, noopHandler)
	require.NoError(t, err)

	tests := []struct {
		path     string
		match    bool
		term     string
		taxonomy string
	}{
		{"/tag/foo/latest", true, "foo", "tag"},
		{"/tag/foo/latest/", true, "foo", "tag"},
		{"/news/latest", true, "news", "category"},
		{"/news/latest/", true, "news", "category"},
		{"tag/release/latest", true, "release", "tag"},
		{"/tag/latest", true, "tag", "category"},
		{"/news/latest/extra", false, "", ""},
		{"/a/b/latest", false, "", ""},
		{"/latest", false, "", ""},
		{"/news", false, "", ""},
		{"/tag/foo/bar/latest", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, ok := rt.Match(tt.path)
			require.Equal(t, tt.match, ok)
			if !ok {
				return
			}
			assert.Equal(t, "1", m.Vars.Get(QueryVarRedirect))
			assert.Equal(t, tt.term, m.Vars.Get(QueryVarTerm))
			assert.Equal(t, tt.taxonomy, m.Vars.Get(QueryVarTaxonomy))
		})
	}
}

func TestMaterializedPathRoundTrip(t *testing.T) {
	rt := rewrite.NewRouter(testutil.TestLoggerSilent())
	_, err := RegisterRules(rt, noopHandler)
	require.NoError(t, err)

	for _, tax := range []model.TaxonomyKind{model.TaxonomyCategory, model.TaxonomyTag} {
		for _, slug := range []string{"news", "release", "tag", "a-b-c", "2024"} {
			u := URL(home, tax, slug)
			path := strings.TrimPrefix(u, home)

			m, ok := rt.Match(path)
			require.True(t, ok, "no match for %s", path)
			assert.Equal(t, slug, m.Vars.Get(QueryVarTerm), path)
			assert.Equal(t, tax.String(), m.Vars.Get(QueryVarTaxonomy), path)
		}
	}
}
