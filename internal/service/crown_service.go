package service

import (
	"context"
	"fmt"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/internal/scoring"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNothingToCrown = fmt.Errorf("%w: no captures with rallies to crown", domain.ErrInvalidState)

type crownService struct {
	repos   *repository.Repositories
	cache   *CacheService
	logger  *logger.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// NewCrownService creates a new crown service
func NewCrownService(repos *repository.Repositories, cache *CacheService, log *logger.Logger, m *metrics.Manager) CrownService {
	return &crownService{
		repos:   repos,
		cache:   cache,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// CrownMomentOfGame selects the non-reported capture with the most rallies,
// earliest first on ties, and makes it the only crowned capture of the
// event. The bonus is paid when the crown moves to a new capture. Rerunning
// with the same winner changes nothing and pays nothing.
func (s *crownService) CrownMomentOfGame(ctx context.Context, eventID string) (*domain.CrownResult, error) {
	var result *domain.CrownResult

	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
		}

		if err := tx.LockEventCrown(ctx, eventID); err != nil {
			return err
		}

		winner, err := tx.TopCrownCandidate(ctx, eventID)
		if err != nil {
			return err
		}
		if winner == nil || winner.RallyCount == 0 {
			return errNothingToCrown
		}

		previous, err := tx.CurrentMomentOfGame(ctx, eventID)
		if err != nil {
			return err
		}

		bonus := scoring.MomentOfGameBonus(event.Significance)
		result = &domain.CrownResult{
			EventID:     eventID,
			CaptureID:   winner.ID,
			UserID:      winner.UserID,
			RallyCount:  winner.RallyCount,
			BonusPoints: bonus,
		}

		if previous != nil && previous.ID == winner.ID {
			return nil
		}
		if previous != nil {
			result.PreviousCaptureID = previous.ID
			if err := tx.ClearMomentOfGame(ctx, eventID); err != nil {
				return err
			}
		}

		if err := tx.SetMomentOfGame(ctx, winner.ID); err != nil {
			return err
		}
		if err := tx.AppendLedger(ctx, &domain.PointsLedgerEntry{
			ID:        uuid.NewString(),
			UserID:    winner.UserID,
			EventID:   eventID,
			CaptureID: winner.ID,
			Kind:      domain.LedgerKindMomentOfGame,
			Amount:    bonus,
			Label:     domain.LabelMomentOfGame,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}

		result.BonusPaid = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCrown(result.BonusPaid)
	if result.BonusPaid {
		s.metrics.RecordPoints(string(domain.LedgerKindMomentOfGame), result.BonusPoints)
		s.cache.InvalidateLeaderboard(ctx)
	}

	s.logger.Info("Moment of the Game crowned",
		zap.String("event_id", eventID),
		zap.String("capture_id", result.CaptureID),
		zap.String("previous_capture_id", result.PreviousCaptureID),
		zap.Int("rally_count", result.RallyCount),
		zap.Bool("bonus_paid", result.BonusPaid))

	return result, nil
}
