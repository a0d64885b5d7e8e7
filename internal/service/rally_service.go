package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/internal/scoring"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed page sizes
const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

var (
	errFeedLocked      = fmt.Errorf("%w: event has ended, the feed is locked", domain.ErrInvalidState)
	errOwnCapture      = fmt.Errorf("%w: cannot rally your own capture", domain.ErrInvalidState)
	errBudgetExhausted = fmt.Errorf("%w: rally budget exhausted for this event", domain.ErrInvalidState)
	errRallyInFlight   = fmt.Errorf("%w: rally already in progress for this capture", domain.ErrConflict)
)

type rallyService struct {
	repos   *repository.Repositories
	cache   *CacheService
	logger  *logger.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// NewRallyService creates a new rally service
func NewRallyService(repos *repository.Repositories, cache *CacheService, log *logger.Logger, m *metrics.Manager) RallyService {
	return &rallyService{
		repos:   repos,
		cache:   cache,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// CastRally runs every precondition and write in one transaction. The
// capture row lock serialises rally count increments on the capture and the
// voter budget lock serialises the voter's rallies across the event, so
// neither the count nor the budget can be raced. Duplicate pairs are
// rejected by the rallies unique constraint even when two attempts slip
// past the Redis in-flight lock together.
func (s *rallyService) CastRally(ctx context.Context, captureID, voterID string) (*domain.RallyResult, error) {
	if voterID == "" {
		return nil, fmt.Errorf("%w: voter is required", domain.ErrValidation)
	}

	// The lock only covers the attempt in flight. A finished attempt is
	// decided by the checks below, in order, on every retry.
	if !s.cache.TryRallyLock(ctx, captureID, voterID) {
		s.metrics.RecordRally(metrics.RallyDuplicate)
		return nil, errRallyInFlight
	}
	defer s.cache.ReleaseRallyLock(context.WithoutCancel(ctx), captureID, voterID)

	result, err := s.castRally(ctx, captureID, voterID)
	if err != nil {
		s.metrics.RecordRally(rallyOutcome(err))
		return nil, err
	}

	s.metrics.RecordRally(metrics.RallyAccepted)
	s.metrics.RecordPoints(string(domain.LedgerKindRallyReward), result.VoterPointsAwarded)
	s.logger.Info("Rally cast",
		zap.String("capture_id", captureID),
		zap.String("voter_id", voterID),
		zap.Int("rally_count", result.NewRallyCount),
		zap.Int("rallies_remaining", result.RalliesRemaining))

	return result, nil
}

func (s *rallyService) castRally(ctx context.Context, captureID, voterID string) (*domain.RallyResult, error) {
	var result *domain.RallyResult

	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		capture, err := tx.LockCapture(ctx, captureID)
		if err != nil {
			return err
		}
		if capture == nil {
			return fmt.Errorf("%w: capture %s", domain.ErrNotFound, captureID)
		}

		event, err := tx.GetEvent(ctx, capture.EventID)
		if err != nil {
			return err
		}
		if event == nil {
			return fmt.Errorf("%w: event %s", domain.ErrNotFound, capture.EventID)
		}
		if event.IsCompleted() {
			return errFeedLocked
		}
		if capture.UserID == voterID {
			return errOwnCapture
		}

		if err := tx.LockVoterBudget(ctx, event.ID, voterID); err != nil {
			return err
		}
		prior, err := tx.CountVoterRallies(ctx, event.ID, voterID)
		if err != nil {
			return err
		}
		if prior >= domain.RallyBudgetPerEvent {
			return errBudgetExhausted
		}

		now := s.now().UTC()
		if err := tx.InsertRally(ctx, &domain.Rally{
			ID:        uuid.NewString(),
			CaptureID: capture.ID,
			EventID:   event.ID,
			VoterID:   voterID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		rallyCount, err := tx.IncrementRallyCount(ctx, capture.ID)
		if err != nil {
			return err
		}

		totalPoints := scoring.TotalPoints(capture.BasePoints, rallyCount, event.Significance, capture.MomentType)
		if err := tx.UpdateTotalPoints(ctx, capture.ID, totalPoints); err != nil {
			return err
		}

		if err := tx.AppendLedger(ctx, &domain.PointsLedgerEntry{
			ID:        uuid.NewString(),
			UserID:    voterID,
			EventID:   event.ID,
			CaptureID: capture.ID,
			Kind:      domain.LedgerKindRallyReward,
			Amount:    domain.RallyVoterReward,
			Label:     domain.LabelRallyReward,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result = &domain.RallyResult{
			CaptureID:          capture.ID,
			NewRallyCount:      rallyCount,
			NewTotalPoints:     totalPoints,
			RalliesRemaining:   domain.RallyBudgetPerEvent - (prior + 1),
			VoterPointsAwarded: domain.RallyVoterReward,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFeed lists an event's captures. voterID may be empty for anonymous
// viewers, who see no rally flags and a full budget.
func (s *rallyService) GetFeed(ctx context.Context, eventID, voterID string, sort domain.FeedSort, limit int) (*domain.FeedView, error) {
	event, err := s.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}

	sort = domain.ParseFeedSort(string(sort))
	limit = clampLimit(limit, DefaultFeedLimit, MaxFeedLimit)

	var (
		captures []*domain.Capture
		crowned  *domain.Capture
		rallied  = map[string]bool{}
		used     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		captures, err = s.repos.Captures.ListFeed(gctx, eventID, sort, limit)
		return err
	})
	g.Go(func() error {
		var err error
		crowned, err = s.repos.Captures.GetMomentOfGame(gctx, eventID)
		return err
	})
	if voterID != "" {
		g.Go(func() error {
			var err error
			rallied, err = s.repos.Captures.RalliedCaptureIDs(gctx, eventID, voterID)
			return err
		})
		g.Go(func() error {
			var err error
			used, err = s.repos.Captures.CountVoterRallies(gctx, eventID, voterID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	view := &domain.FeedView{
		EventID:          event.ID,
		EventStatus:      event.Status,
		Sort:             sort,
		Captures:         make([]domain.FeedCapture, 0, len(captures)),
		RalliesRemaining: max(domain.RallyBudgetPerEvent-used, 0),
	}
	for _, c := range captures {
		view.Captures = append(view.Captures, domain.FeedCapture{Capture: *c, HasRallied: rallied[c.ID]})
	}
	if crowned != nil && !crowned.IsReported {
		view.MomentOfGame = crowned
	}

	return view, nil
}

func rallyOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return metrics.RallyDuplicate
	case errors.Is(err, errBudgetExhausted):
		return metrics.RallyBudgetExhausted
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
		return metrics.RallyRejected
	default:
		return metrics.RallyFailed
	}
}

func clampLimit(limit, fallback, maximum int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maximum)
}
