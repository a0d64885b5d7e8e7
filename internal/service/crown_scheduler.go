package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"

	"go.uber.org/zap"
)

// crownSweepBatch caps how many events one sweep crowns
const crownSweepBatch = 50

// crownScheduler crowns completed events that have no Moment of the Game yet
type crownScheduler struct {
	events   repository.EventRepository
	crowns   CrownService
	logger   *logger.Logger
	metrics  *metrics.Manager
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	stop      chan struct{}
	done      chan struct{}
}

// NewCrownScheduler creates a scheduler sweeping every interval. A zero
// interval yields a scheduler whose Start does nothing.
func NewCrownScheduler(events repository.EventRepository, crowns CrownService, log *logger.Logger, m *metrics.Manager, interval time.Duration) CrownScheduler {
	return &crownScheduler{
		events:   events,
		crowns:   crowns,
		logger:   log,
		metrics:  m,
		interval: interval,
	}
}

// Start begins periodic sweeps until Stop is called or ctx is done
func (s *crownScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.interval <= 0 {
		s.logger.Info("Crown sweep disabled")
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.sweepRoutine(ctx, time.NewTicker(s.interval))

	s.isRunning = true
	s.logger.Info("Crown scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the sweep routine and waits for an in-flight sweep
func (s *crownScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	close(s.stop)
	s.isRunning = false

	select {
	case <-s.done:
		s.logger.Info("Crown scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *crownScheduler) sweepRoutine(ctx context.Context, ticker *time.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep crowns one batch of completed, uncrowned events and returns how
// many were crowned
func (s *crownScheduler) Sweep(ctx context.Context) int {
	s.metrics.RecordCrownSweep()

	events, err := s.events.ListCompletedWithoutCrown(ctx, crownSweepBatch)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list events awaiting a crown")
		return 0
	}

	crowned := 0
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}

		_, err := s.crowns.CrownMomentOfGame(ctx, event.ID)
		switch {
		case err == nil:
			crowned++
		case errors.Is(err, domain.ErrInvalidState):
			s.logger.Debug("Event skipped by crown sweep", zap.String("event_id", event.ID), zap.Error(err))
		default:
			s.logger.Error("Failed to crown event", zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	if crowned > 0 {
		s.logger.Info("Crown sweep completed", zap.Int("crowned", crowned), zap.Int("candidates", len(events)))
	}
	return crowned
}
