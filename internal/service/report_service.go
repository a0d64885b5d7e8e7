package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/pkg/logger"
	"rally-api/pkg/redis"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report parameters
const (
	DefaultAttributionWindowDays = 30
	MaxAttributionWindowDays     = 365
	DefaultPointsHistoryLimit    = 20
	MaxPointsHistoryLimit        = 100
)

type reportService struct {
	repos       *repository.Repositories
	cache       *CacheService
	logger      *logger.Logger
	seasonStart *time.Time
	now         func() time.Time
}

// NewReportService creates a new report service. seasonStart may be nil to
// rank over all captures.
func NewReportService(repos *repository.Repositories, cache *CacheService, log *logger.Logger, seasonStart *time.Time) ReportService {
	return &reportService{
		repos:       repos,
		cache:       cache,
		logger:      log,
		seasonStart: seasonStart,
		now:         time.Now,
	}
}

// SeasonLeaderboard returns the cached leaderboard, computing it on a miss
func (s *reportService) SeasonLeaderboard(ctx context.Context) (*domain.LeaderboardView, error) {
	key := redis.KeySeasonLeaderboard
	if s.cache.Enabled() {
		key = s.cache.redis.KeyBuilder.KeySeasonLeaderboard()
	}
	return loadCached(ctx, s.cache, reportLeaderboard, key, redis.TTLSeasonLeaderboard, s.computeLeaderboard)
}

func (s *reportService) computeLeaderboard(ctx context.Context) (*domain.LeaderboardView, error) {
	entries, err := s.repos.Reports.SeasonLeaderboard(ctx, s.seasonStart, domain.SeasonLeaderboardSize)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.logger.Debug("Season leaderboard computed", zap.Int("entries", len(entries)))
	return &domain.LeaderboardView{
		Entries:     entries,
		SeasonStart: s.seasonStart,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Attribution returns sponsored engagement over the trailing windowDays.
// An unset (zero) windowDays means 30; anything else is clamped to [1, 365].
func (s *reportService) Attribution(ctx context.Context, windowDays int) (*domain.AttributionView, error) {
	windowDays = clampWindowDays(windowDays)

	key := fmt.Sprintf(redis.KeyAttribution, windowDays)
	if s.cache.Enabled() {
		key = s.cache.redis.KeyBuilder.KeyAttribution(windowDays)
	}
	return loadCached(ctx, s.cache, reportAttribution, key, redis.TTLAttribution, func(ctx context.Context) (*domain.AttributionView, error) {
		return s.computeAttribution(ctx, windowDays)
	})
}

func (s *reportService) computeAttribution(ctx context.Context, windowDays int) (*domain.AttributionView, error) {
	now := s.now().UTC()
	since := now.Add(-time.Duration(windowDays) * 24 * time.Hour)

	captures, err := s.repos.Reports.CapturesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	view := &domain.AttributionView{
		WindowDays:   windowDays,
		Since:        since,
		ByEvent:      make([]domain.EventAttribution, 0),
		Distribution: momentDistribution(captures),
		GeneratedAt:  now,
	}

	byEvent := make(map[string]*domain.EventAttribution)
	for _, c := range captures {
		if c.MomentType != domain.MomentTypeSponsored {
			continue
		}
		view.TotalCaptures++
		view.TotalRallies += c.RallyCount

		ev, ok := byEvent[c.EventID]
		if !ok {
			ev = &domain.EventAttribution{EventID: c.EventID, EventName: c.EventName}
			byEvent[c.EventID] = ev
		}
		ev.Captures++
		ev.Rallies += c.RallyCount
	}

	eventIDs := make([]string, 0, len(byEvent))
	for id := range byEvent {
		eventIDs = append(eventIDs, id)
	}
	fanCounts, err := s.repos.Presence.FanCounts(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	for _, ev := range byEvent {
		ev.CheckedInFans = fanCounts[ev.EventID]
		view.TotalCheckedInFans += ev.CheckedInFans
		view.ByEvent = append(view.ByEvent, *ev)
	}
	sort.Slice(view.ByEvent, func(i, j int) bool {
		a, b := view.ByEvent[i], view.ByEvent[j]
		if a.Rallies != b.Rallies {
			return a.Rallies > b.Rallies
		}
		if a.Captures != b.Captures {
			return a.Captures > b.Captures
		}
		return a.EventID < b.EventID
	})

	if view.TotalCheckedInFans > 0 {
		view.EngagementRate = float64(view.TotalRallies) / float64(view.TotalCheckedInFans)
	}

	s.logger.Debug("Attribution computed",
		zap.Int("window_days", windowDays),
		zap.Int("sponsored_captures", view.TotalCaptures))
	return view, nil
}

func clampWindowDays(days int) int {
	if days == 0 {
		return DefaultAttributionWindowDays
	}
	return min(max(days, 1), MaxAttributionWindowDays)
}

// momentDistribution counts captures per moment type, always listing all four
func momentDistribution(captures []domain.AttributionCapture) []domain.MomentTypeCount {
	counts := make(map[domain.MomentType]int)
	for _, c := range captures {
		counts[c.MomentType]++
	}

	out := make([]domain.MomentTypeCount, 0, len(domain.MomentTypes()))
	for _, mt := range domain.MomentTypes() {
		bucket := domain.MomentTypeCount{MomentType: mt, Count: counts[mt]}
		if len(captures) > 0 {
			bucket.Percentage = math.Round(float64(bucket.Count)/float64(len(captures))*10000) / 100
		}
		out = append(out, bucket)
	}
	return out
}

// PointsSummary reads the stored balance next to the ledger sum so clients
// and operators can see they agree. Both come from one snapshot, so a
// mismatch is a real ledger defect.
func (s *reportService) PointsSummary(ctx context.Context, userID string, limit int) (*domain.PointsSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	limit = clampLimit(limit, DefaultPointsHistoryLimit, MaxPointsHistoryLimit)

	summary := &domain.PointsSummary{UserID: userID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Balance, summary.LedgerSum, err = s.repos.Ledger.BalanceWithLedgerSum(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Entries, err = s.repos.Ledger.ListEntries(gctx, userID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load points summary: %w", err)
	}

	if summary.Balance != summary.LedgerSum {
		s.logger.Error("Balance does not match ledger",
			zap.String("user_id", userID),
			zap.Int64("balance", summary.Balance),
			zap.Int64("ledger_sum", summary.LedgerSum))
	}

	return summary, nil
}
