// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strings"
)

// StripTrailingSlash redirects GET and HEAD requests for URLs with trailing
// slashes to their non-trailing equivalents (HTTP 301). Excludes root path "/".
// Mount it after the rewrite middleware so "{term}/latest/" is matched first.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
			path != "/" && strings.HasSuffix(path, "/") {
			newURL := "/" + strings.Trim(path, "/")
			if r.URL.RawQuery != "" {
				newURL += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, newURL, http.StatusMovedPermanently)
			return
		}
		next.ServeHTTP(w, r)
	})
}
