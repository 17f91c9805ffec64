// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rewrite maps request paths to query variables using an ordered
// list of regular expression rules, and dispatches matches to handlers
// ahead of normal routing.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Priority controls where a rule is placed in the evaluation order.
type Priority int

const (
	// PriorityTop rules are evaluated before every bottom rule, in the
	// order they were added.
	PriorityTop Priority = iota
	// PriorityBottom rules are appended to the end of the list.
	PriorityBottom
)

// Vars holds the query variables produced by a matched rule.
type Vars map[string]string

// Get returns the value for key, or "" if unset.
func (v Vars) Get(key string) string {
	return v[key]
}

// Has reports whether key is set.
func (v Vars) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// RouteHandler serves a request whose path matched a rewrite rule.
type RouteHandler interface {
	ServeRewrite(w http.ResponseWriter, r *http.Request, vars Vars)
}

// RouteHandlerFunc adapts a function to RouteHandler.
type RouteHandlerFunc func(w http.ResponseWriter, r *http.Request, vars Vars)

// ServeRewrite calls f(w, r, vars).
func (f RouteHandlerFunc) ServeRewrite(w http.ResponseWriter, r *http.Request, vars Vars) {
	f(w, r, vars)
}

// Rule maps a path pattern to query variables.
//
// Pattern is matched against the request path without its leading "/".
// Query is a URL query string whose values may reference capture groups
// as $1, $2 and so on.
type Rule struct {
	Pattern  string
	Query    string
	Priority Priority
	Owner    string
	Handler  RouteHandler
}

// Match is the result of a successful lookup.
type Match struct {
	Rule Rule
	Vars Vars
}

// ErrInvalidRule is returned when a rule cannot be compiled.
var ErrInvalidRule = errors.New("invalid rewrite rule")

type compiledRule struct {
	Rule
	re    *regexp.Regexp
	query url.Values
}

// Router holds the ordered rule list. It is safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	rules    []*compiledRule
	skip     []string
	logger   *slog.Logger
	topCount int
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Skip excludes request paths under any of the given prefixes from matching
// in Middleware. Prefixes match whole path segments, see HasPathPrefix.
func (rt *Router) Skip(prefixes ...string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.skip = append(rt.skip, prefixes...)
}

// Add registers a rule. Adding a pattern that is already registered is a
// no-op and returns false.
func (rt *Router) Add(rule Rule) (bool, error) {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return false, fmt.Errorf("%w: pattern %q: %v", ErrInvalidRule, rule.Pattern, err)
	}
	query, err := url.ParseQuery(rule.Query)
	if err != nil {
		return false, fmt.Errorf("%w: query %q: %v", ErrInvalidRule, rule.Query, err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	for _, existing := range rt.rules {
		if existing.Pattern == rule.Pattern {
			return false, nil
		}
	}

	cr := &compiledRule{Rule: rule, re: re, query: query}
	if rule.Priority == PriorityTop {
		rt.rules = append(rt.rules, nil)
		copy(rt.rules[rt.topCount+1:], rt.rules[rt.topCount:])
		rt.rules[rt.topCount] = cr
		rt.topCount++
	} else {
		rt.rules = append(rt.rules, cr)
	}

	rt.logger.Debug("rewrite rule added", "pattern", rule.Pattern, "owner", rule.Owner)
	return true, nil
}

// RemoveOwner removes every rule registered by owner and returns the count.
func (rt *Router) RemoveOwner(owner string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	kept := rt.rules[:0]
	removed := 0
	top := 0
	for _, cr := range rt.rules {
		if cr.Owner == owner {
			removed++
			continue
		}
		if cr.Priority == PriorityTop {
			top++
		}
		kept = append(kept, cr)
	}
	for i := len(kept); i < len(rt.rules); i++ {
		rt.rules[i] = nil
	}
	rt.rules = kept
	rt.topCount = top

	if removed > 0 {
		rt.logger.Debug("rewrite rules removed", "owner", owner, "count", removed)
	}
	return removed
}

// Rules returns a snapshot of the registered rules in evaluation order.
func (rt *Router) Rules() []Rule {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	rules := make([]Rule, len(rt.rules))
	for i, cr := range rt.rules {
		rules[i] = cr.Rule
	}
	return rules
}

// Len returns the number of registered rules.
func (rt *Router) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.rules)
}

// Match finds the first rule whose pattern matches path. A leading "/" on
// path is ignored.
func (rt *Router) Match(path string) (Match, bool) {
	path = strings.TrimPrefix(path, "/")

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for _, cr := range rt.rules {
		groups := cr.re.FindStringSubmatch(path)
		if groups == nil {
			continue
		}
		return Match{Rule: cr.Rule, Vars: expand(cr.query, groups)}, true
	}
	return Match{}, false
}

// expand substitutes $N references in query values with capture groups.
func expand(query url.Values, groups []string) Vars {
	pairs := make([]string, 0, 2*len(groups))
	for i := len(groups) - 1; i >= 1; i-- {
		pairs = append(pairs, "$"+strconv.Itoa(i), groups[i])
	}
	replacer := strings.NewReplacer(pairs...)

	vars := make(Vars, len(query))
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		vars[key] = replacer.Replace(values[0])
	}
	return vars
}

// Middleware dispatches matched requests to the rule's handler. Requests
// that match no rule, or a rule without a handler, continue to next.
func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		m, ok := rt.Match(r.URL.Path)
		if !ok || m.Rule.Handler == nil {
			next.ServeHTTP(w, r)
			return
		}

		rt.logger.Debug("rewrite rule matched", "path", r.URL.Path, "pattern", m.Rule.Pattern)
		m.Rule.Handler.ServeRewrite(w, r.WithContext(WithVars(r.Context(), m.Vars)), m.Vars)
	})
}

func (rt *Router) skipped(path string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, prefix := range rt.skip {
		if HasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// HasPathPrefix reports whether path is prefix or lies below it.
// "/health" matches "/health" and "/health/ready" but not "/health-tips/latest".
func HasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

type varsKey struct{}

// WithVars returns a copy of ctx carrying vars.
func WithVars(ctx context.Context, vars Vars) context.Context {
	return context.WithValue(ctx, varsKey{}, vars)
}

// VarsFromContext returns the rewrite vars stored in ctx, if any.
func VarsFromContext(ctx context.Context) Vars {
	vars, _ := ctx.Value(varsKey{}).(Vars)
	return vars
}
