package memory

import (
	"context"
	"sort"
	"time"

	"rally-api/internal/domain"
)

type eventRepo struct{ s *Store }

func (r eventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	event, ok := r.s.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (r eventRepo) ListCompletedWithoutCrown(_ context.Context, limit int) ([]*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	crownable := make(map[string]bool)
	crowned := make(map[string]bool)
	for _, c := range r.s.captures {
		if c.IsMomentOfGame {
			crowned[c.EventID] = true
		}
		if !c.IsReported && c.RallyCount > 0 {
			crownable[c.EventID] = true
		}
	}

	events := make([]*domain.Event, 0)
	for _, e := range r.s.events {
		if e.IsCompleted() && crownable[e.ID] && !crowned[e.ID] {
			e := e
			events = append(events, &e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

type presenceRepo struct{ s *Store }

func (r presenceRepo) GetLobby(_ context.Context, eventID string) (*domain.Lobby, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	lobby, ok := r.s.lobbies[eventID]
	if !ok {
		return nil, nil
	}
	return &lobby, nil
}

func (r presenceRepo) IsActive(_ context.Context, eventID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.presence[presenceKey(eventID, userID)].IsActive, nil
}

func (r presenceRepo) FanCounts(_ context.Context, eventIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[string]int, len(eventIDs))
	for _, id := range eventIDs {
		if lobby, ok := r.s.lobbies[id]; ok {
			counts[id] = lobby.FanCount
		}
	}
	return counts, nil
}

type captureRepo struct{ s *Store }

func (r captureRepo) GetByID(_ context.Context, id string) (*domain.Capture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.captures[id]
	if !ok {
		return nil, nil
	}
	return copyCapture(c), nil
}

func (r captureRepo) ListFeed(_ context.Context, eventID string, sortBy domain.FeedSort, limit int) ([]*domain.Capture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	less := byLatest
	if sortBy == domain.FeedSortTop {
		less = byTop
	}
	sorted := r.s.sortedCaptures(func(c domain.Capture) bool {
		return c.EventID == eventID && !c.IsReported
	}, less)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]*domain.Capture, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, copyCapture(c))
	}
	return out, nil
}

func (r captureRepo) GetMomentOfGame(_ context.Context, eventID string) (*domain.Capture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.crowned(eventID), nil
}

func (r captureRepo) RalliedCaptureIDs(_ context.Context, eventID, voterID string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make(map[string]bool)
	for _, rally := range r.s.rallies {
		if rally.EventID == eventID && rally.VoterID == voterID {
			ids[rally.CaptureID] = true
		}
	}
	return ids, nil
}

func (r captureRepo) CountVoterRallies(_ context.Context, eventID, voterID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.countRallies(eventID, voterID), nil
}

func (r captureRepo) MarkReported(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.captures[id]
	if !ok {
		return false, nil
	}
	c.IsReported = true
	r.s.captures[id] = c
	return true, nil
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) GetBalance(_ context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.balances[userID].Points, nil
}

func (r ledgerRepo) SumEntries(_ context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum int64
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			sum += int64(e.Amount)
		}
	}
	return sum, nil
}

func (r ledgerRepo) BalanceWithLedgerSum(_ context.Context, userID string) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum int64
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			sum += int64(e.Amount)
		}
	}
	return r.s.balances[userID].Points, sum, nil
}

func (r ledgerRepo) ListEntries(_ context.Context, userID string, limit int) ([]*domain.PointsLedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := make([]*domain.PointsLedgerEntry, 0)
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		if limit > 0 && len(entries) == limit {
			break
		}
		if e := r.s.ledger[i]; e.UserID == userID {
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

type reportRepo struct{ s *Store }

func (r reportRepo) SeasonLeaderboard(_ context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byUser := make(map[string]*domain.LeaderboardEntry)
	for _, c := range r.s.captures {
		if c.IsReported || (since != nil && c.CreatedAt.Before(*since)) {
			continue
		}
		entry, ok := byUser[c.UserID]
		if !ok {
			entry = &domain.LeaderboardEntry{UserID: c.UserID}
			byUser[c.UserID] = entry
		}
		entry.TotalRallies += c.RallyCount
		entry.CaptureCount++
		if c.IsMomentOfGame {
			entry.MomentsOfGame++
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalRallies != b.TotalRallies {
			return a.TotalRallies > b.TotalRallies
		}
		if a.CaptureCount != b.CaptureCount {
			return a.CaptureCount > b.CaptureCount
		}
		return a.UserID < b.UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r reportRepo) CapturesSince(_ context.Context, since time.Time) ([]domain.AttributionCapture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sorted := r.s.sortedCaptures(func(c domain.Capture) bool {
		return !c.IsReported && !c.CreatedAt.Before(since)
	}, func(a, b domain.Capture) bool { return !byLatest(a, b) })

	out := make([]domain.AttributionCapture, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, domain.AttributionCapture{
			CaptureID:  c.ID,
			EventID:    c.EventID,
			EventName:  r.s.events[c.EventID].Name,
			MomentType: c.MomentType,
			RallyCount: c.RallyCount,
			CreatedAt:  c.CreatedAt,
		})
	}
	return out, nil
}
