// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/ocms-latest/internal/middleware"
)

// logAndInternalError logs an error and writes a JSON 500 response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error", nil)
}
