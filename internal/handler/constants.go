// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"
	// RouteParamName is the module name parameter pattern.
	RouteParamName = "/{name}"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteHealthLive is the liveness probe route.
	RouteHealthLive = "/health/live"
	// RouteHealthReady is the readiness probe route.
	RouteHealthReady = "/health/ready"

	// RouteAPIMenus is the public menu API prefix.
	RouteAPIMenus = "/api/v1/menus"

	// RouteEvents is the events admin route.
	RouteEvents = "/events"
	// RouteModules is the modules admin route.
	RouteModules = "/modules"
)

// Public listing defaults.
const (
	// HomePostsLimit is the number of posts listed on the home page.
	HomePostsLimit = 10
	// EventsLimitMax caps the admin events listing.
	EventsLimitMax = 200
)
