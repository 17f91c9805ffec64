// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-latest/internal/model"
)

// EventPruner removes event log entries older than a duration.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Config controls the event retention job.
type Config struct {
	// Spec is a standard cron expression or descriptor such as "@daily".
	Spec string
	// Retention is how long events are kept.
	Retention time.Duration
}

// Scheduler handles scheduled tasks like pruning the event log.
type Scheduler struct {
	events EventPruner
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a new scheduler instance.
func New(events EventPruner, cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		events: events,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the event retention job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Spec, func() {
		if _, err := s.PruneEvents(context.Background()); err != nil {
			s.logger.Error("failed to prune event log", "category", model.EventCategorySystem, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling event cleanup %q: %w", s.cfg.Spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "event_cleanup", s.cfg.Spec)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PruneEvents deletes events older than the configured retention.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	n, err := s.events.DeleteOldEvents(ctx, s.cfg.Retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned event log", "deleted", n, "retention", s.cfg.Retention)
	}
	return n, nil
}
