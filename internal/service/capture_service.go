package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/internal/scoring"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type captureService struct {
	repos   *repository.Repositories
	cache   *CacheService
	logger  *logger.Logger
	metrics *metrics.Manager
	now     func() time.Time
}

// NewCaptureService creates a new capture service
func NewCaptureService(repos *repository.Repositories, cache *CacheService, log *logger.Logger, m *metrics.Manager) CaptureService {
	return &captureService{
		repos:   repos,
		cache:   cache,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// PostCapture checks, in order, that the event exists, that it is live and
// that the author is checked in when the event has a lobby. The capture row
// and its base points ledger entry are written in one transaction.
func (s *captureService) PostCapture(ctx context.Context, req domain.PostCaptureRequest) (*domain.PostCaptureResult, error) {
	caption, err := validatePostCapture(&req)
	if err != nil {
		return nil, err
	}

	event, err := s.repos.Events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if err := checkEventAcceptsCaptures(event, req.EventID); err != nil {
		return nil, err
	}

	lobby, err := s.repos.Presence.GetLobby(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if lobby != nil {
		active, err := s.repos.Presence.IsActive(ctx, req.EventID, req.UserID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, fmt.Errorf("%w: check in to the venue lobby before posting", domain.ErrForbidden)
		}
	}

	momentType := domain.ParseMomentType(req.MomentType)
	inStadium := true
	if req.IsInStadium != nil {
		inStadium = *req.IsInStadium
	}

	now := s.now().UTC()
	basePoints := scoring.BasePoints(event.Significance, momentType)
	capture := &domain.Capture{
		ID:          uuid.NewString(),
		EventID:     req.EventID,
		UserID:      req.UserID,
		ImageRef:    strings.TrimSpace(req.ImageRef),
		Caption:     caption,
		MomentType:  momentType,
		IsInStadium: inStadium,
		BasePoints:  basePoints,
		RallyCount:  0,
		TotalPoints: basePoints,
		CreatedAt:   now,
	}

	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// The event may have ended since the pre-check
		current, err := tx.GetEvent(ctx, req.EventID)
		if err != nil {
			return err
		}
		if err := checkEventAcceptsCaptures(current, req.EventID); err != nil {
			return err
		}

		if err := tx.InsertCapture(ctx, capture); err != nil {
			return err
		}

		return tx.AppendLedger(ctx, &domain.PointsLedgerEntry{
			ID:        uuid.NewString(),
			UserID:    capture.UserID,
			EventID:   capture.EventID,
			CaptureID: capture.ID,
			Kind:      domain.LedgerKindCaptureBase,
			Amount:    basePoints,
			Label:     domain.LabelCaptureBase,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCapturePosted(string(momentType))
	s.metrics.RecordPoints(string(domain.LedgerKindCaptureBase), basePoints)
	s.logger.Info("Capture posted",
		zap.String("capture_id", capture.ID),
		zap.String("event_id", capture.EventID),
		zap.String("user_id", capture.UserID),
		zap.String("moment_type", string(momentType)),
		zap.Int("base_points", basePoints))

	return &domain.PostCaptureResult{Capture: capture, PointsAwarded: basePoints}, nil
}

// GetCapture retrieves a capture by ID
func (s *captureService) GetCapture(ctx context.Context, captureID string) (*domain.Capture, error) {
	capture, err := s.repos.Captures.GetByID(ctx, captureID)
	if err != nil {
		return nil, err
	}
	if capture == nil {
		return nil, fmt.Errorf("%w: capture %s", domain.ErrNotFound, captureID)
	}
	return capture, nil
}

// ReportCapture flags a capture. Reporting twice is harmless.
func (s *captureService) ReportCapture(ctx context.Context, captureID, reporterID string) error {
	found, err := s.repos.Captures.MarkReported(ctx, captureID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: capture %s", domain.ErrNotFound, captureID)
	}
	s.cache.InvalidateLeaderboard(ctx)

	s.logger.Info("Capture reported",
		zap.String("capture_id", captureID),
		zap.String("reporter_id", reporterID))
	return nil
}

func checkEventAcceptsCaptures(event *domain.Event, eventID string) error {
	if event == nil {
		return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	if !event.IsLive() {
		return fmt.Errorf("%w: captures only allowed during live events", domain.ErrInvalidState)
	}
	return nil
}

// validatePostCapture returns the normalised caption, nil when blank
func validatePostCapture(req *domain.PostCaptureRequest) (*string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.EventID) == "" {
		return nil, fmt.Errorf("%w: event is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.ImageRef) == "" {
		return nil, fmt.Errorf("%w: image_ref is required", domain.ErrValidation)
	}

	if req.Caption == nil {
		return nil, nil
	}
	caption := strings.TrimSpace(*req.Caption)
	if caption == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(caption) > domain.MaxCaptionLength {
		return nil, fmt.Errorf("%w: caption exceeds %d characters", domain.ErrValidation, domain.MaxCaptionLength)
	}
	return &caption, nil
}
