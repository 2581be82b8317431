package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/store"
)

// RetentionService periodically deletes audit records older than Retention
// so the decisions table does not grow without bound.
type RetentionService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// Now overrides the clock, tests only.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRetentionService creates the service. An interval of 0 or less
// defaults to 1 hour, a retention of 0 or less to 30 days.
func NewRetentionService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *RetentionService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &RetentionService{
		Store:     st,
		Logger:    logger.With("component", "retention"),
		Interval:  interval,
		Retention: retention,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Cleanup runs once immediately.
func (s *RetentionService) Start() {
	go s.run()
	s.Logger.Info("retention service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts down the worker and waits for an in-progress cleanup.
func (s *RetentionService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("retention service stopped")
}

func (s *RetentionService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes records older than the retention window and returns how
// many were removed.
func (s *RetentionService) Cleanup(ctx context.Context) int64 {
	cutoff := s.Now().Add(-s.Retention)

	n, err := s.Store.Decisions().DeleteDecisionsBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete expired decisions", "error", err)
		return 0
	}

	s.Logger.Info("retention cleanup completed", "deleted", n, "cutoff", cutoff)
	return n
}
