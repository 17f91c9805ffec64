// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package latestpost

import (
	"fmt"

	"github.com/olegiv/ocms-latest/internal/rewrite"
)

// Query variables set by the rewrite rules.
const (
	QueryVarRedirect = "latest_post_redirect"
	QueryVarTerm     = "latest_post_term"
	QueryVarTaxonomy = "latest_post_taxonomy"
)

// Rule patterns. The tag rule comes first so that "tag/foo/latest" is
// never read as the category "tag".
const (
	TagPattern      = `^tag/([^/]+)/latest/?$`
	CategoryPattern = `^([^/]+)/latest/?$`
)

// Rules returns the rule pair dispatching to h, in evaluation order.
func Rules(h rewrite.RouteHandler) []rewrite.Rule {
	return []rewrite.Rule{
		{
			Pattern:  TagPattern,
			Query:    QueryVarRedirect + "=1&" + QueryVarTerm + "=$1&" + QueryVarTaxonomy + "=tag",
			Priority: rewrite.PriorityTop,
			Owner:    ModuleName,
			Handler:  h,
		},
		{
			Pattern:  CategoryPattern,
			Query:    QueryVarRedirect + "=1&" + QueryVarTerm + "=$1&" + QueryVarTaxonomy + "=category",
			Priority: rewrite.PriorityTop,
			Owner:    ModuleName,
			Handler:  h,
		},
	}
}

// RegisterRules adds the rule pair to rt. Rules already present are left
// alone, so calling it repeatedly is safe. It returns how many rules were added.
func RegisterRules(rt *rewrite.Router, h rewrite.RouteHandler) (int, error) {
	added := 0
	for _, rule := range Rules(h) {
		ok, err := rt.Add(rule)
		if err != nil {
			return added, fmt.Errorf("registering %s: %w", rule.Pattern, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
