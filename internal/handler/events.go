// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-latest/internal/middleware"
	"github.com/olegiv/ocms-latest/internal/model"
	"github.com/olegiv/ocms-latest/internal/service"
)

// EventsDefaultLimit is the number of events returned when no limit is given.
const EventsDefaultLimit = 50

// EventsHandler serves the event log.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

// EventView is a single event as returned by the admin API.
type EventView struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// formatMetadata converts JSON metadata to readable text format.
// Example: {"menu_item_id":3,"error":"not found"} -> "error: not found, menu_item_id: 3"
func formatMetadata(metadata string) string {
	if metadata == "" || metadata == "{}" {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(metadata), &data); err != nil {
		return metadata // Return as-is if not valid JSON
	}

	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var strValue string
		switch v := data[key].(type) {
		case string:
			strValue = v
		case float64:
			strValue = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			strValue = strconv.FormatBool(v)
		default:
			if b, err := json.Marshal(v); err == nil {
				strValue = string(b)
			}
		}
		parts = append(parts, key+": "+strValue)
	}

	return strings.Join(parts, ", ")
}

// List handles GET /admin/events.
// Optional query parameters: limit (1..EventsLimitMax), level, category.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := EventsDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.WriteAPIError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, EventsLimitMax)
	}
	level := r.URL.Query().Get("level")
	category := r.URL.Query().Get("category")

	events, err := h.events.List(r.Context(), limit)
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		if !matchesEvent(e, level, category) {
			continue
		}
		views = append(views, EventView{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			Metadata:  e.Metadata,
			Details:   formatMetadata(e.Metadata),
			CreatedAt: e.CreatedAt,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"events": views,
		"count":  len(views),
	})
}

func matchesEvent(e model.Event, level, category string) bool {
	if level != "" && e.Level != level {
		return false
	}
	return category == "" || e.Category == category
}
