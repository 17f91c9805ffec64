// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestWriteAPIError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteAPIError(rr, http.StatusBadRequest, "validation_failed", "bad input", map[string]string{"term_id": "required"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body APIError
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_failed" || body.Error.Details["term_id"] != "required" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]any{"id": 7, "title": "News & Events"})

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != 7 || body.Title != "News & Events" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestAdminToken(t *testing.T) {
	const token = "secret-token"

	tests := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{"disabled", "", "Bearer secret-token", http.StatusNotFound},
		{"missing header", token, "", http.StatusUnauthorized},
		{"wrong scheme", token, "Basic secret-token", http.StatusUnauthorized},
		{"wrong token", token, "Bearer nope", http.StatusUnauthorized},
		{"valid", token, "Bearer secret-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AdminToken(tt.configured)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/admin/latest-post/terms", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(0.001, 2)
	h := rl.Middleware()(okHandler)

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/news/latest", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:1111"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
	// Same IP, different port: still limited.
	if code := do("10.0.0.1:2222"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}
	if code := do("10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}

func TestGlobalRateLimiter_HTML(t *testing.T) {
	rl := NewGlobalRateLimiter(0.001, 1)
	h := rl.HTMLMiddleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLimiterCacheClearIfExceeds(t *testing.T) {
	lc := newLimiterCache[string](1, 1)
	lc.get("a")
	lc.get("b")
	if lc.clearIfExceeds(2) {
		t.Error("cleared at limit")
	}
	lc.get("c")
	if !lc.clearIfExceeds(2) {
		t.Error("did not clear above limit")
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	if ip := getClientIP(req); ip != "2001:db8::1" {
		t.Errorf("ip = %q", ip)
	}
	req.RemoteAddr = "no-port"
	if ip := getClientIP(req); ip != "no-port" {
		t.Errorf("ip = %q", ip)
	}
}
