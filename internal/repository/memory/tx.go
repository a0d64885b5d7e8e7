package memory

import (
	"context"
	"fmt"

	"rally-api/internal/domain"
)

// memTx runs with the store write lock held.
type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	event, ok := t.s.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (t *memTx) LockCapture(_ context.Context, id string) (*domain.Capture, error) {
	c, ok := t.s.captures[id]
	if !ok {
		return nil, nil
	}
	return copyCapture(c), nil
}

// LockVoterBudget is a no-op: the store lock already serialises transactions.
func (t *memTx) LockVoterBudget(context.Context, string, string) error { return nil }

// LockEventCrown is a no-op for the same reason as LockVoterBudget.
func (t *memTx) LockEventCrown(context.Context, string) error { return nil }

func (t *memTx) CountVoterRallies(_ context.Context, eventID, voterID string) (int, error) {
	return t.s.countRallies(eventID, voterID), nil
}

func (t *memTx) InsertCapture(_ context.Context, capture *domain.Capture) error {
	if _, exists := t.s.captures[capture.ID]; exists {
		return fmt.Errorf("failed to create capture: duplicate id %s", capture.ID)
	}
	t.s.captures[capture.ID] = *copyCapture(*capture)
	id := capture.ID
	t.undo = append(t.undo, func() { delete(t.s.captures, id) })
	return nil
}

func (t *memTx) InsertRally(_ context.Context, rally *domain.Rally) error {
	key := rallyKey(rally.CaptureID, rally.VoterID)
	if _, exists := t.s.rallies[key]; exists {
		return fmt.Errorf("%w: capture already rallied by this user", domain.ErrConflict)
	}
	t.s.rallies[key] = *rally
	t.undo = append(t.undo, func() { delete(t.s.rallies, key) })
	return nil
}

func (t *memTx) IncrementRallyCount(_ context.Context, captureID string) (int, error) {
	c, ok := t.s.captures[captureID]
	if !ok {
		return 0, fmt.Errorf("failed to increment rally count: capture %s missing", captureID)
	}
	prev := c
	c.RallyCount++
	t.s.captures[captureID] = c
	t.undo = append(t.undo, func() { t.s.captures[captureID] = prev })
	return c.RallyCount, nil
}

func (t *memTx) UpdateTotalPoints(_ context.Context, captureID string, totalPoints int) error {
	return t.updateCapture(captureID, func(c *domain.Capture) { c.TotalPoints = totalPoints })
}

func (t *memTx) TopCrownCandidate(_ context.Context, eventID string) (*domain.Capture, error) {
	candidates := t.s.sortedCaptures(func(c domain.Capture) bool {
		return c.EventID == eventID && !c.IsReported
	}, byTop)
	if len(candidates) == 0 {
		return nil, nil
	}
	return copyCapture(candidates[0]), nil
}

func (t *memTx) CurrentMomentOfGame(_ context.Context, eventID string) (*domain.Capture, error) {
	return t.s.crowned(eventID), nil
}

func (t *memTx) ClearMomentOfGame(_ context.Context, eventID string) error {
	for id, c := range t.s.captures {
		if c.EventID == eventID && c.IsMomentOfGame {
			if err := t.updateCapture(id, func(c *domain.Capture) { c.IsMomentOfGame = false }); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *memTx) SetMomentOfGame(_ context.Context, captureID string) error {
	c, ok := t.s.captures[captureID]
	if !ok {
		return fmt.Errorf("failed to set moment of the game: capture %s missing", captureID)
	}
	// Mirrors the partial unique index on captures(event_id) WHERE is_moment_of_game
	if current := t.s.crowned(c.EventID); current != nil && current.ID != captureID {
		return fmt.Errorf("failed to set moment of the game: event %s already crowned", c.EventID)
	}
	return t.updateCapture(captureID, func(c *domain.Capture) { c.IsMomentOfGame = true })
}

func (t *memTx) AppendLedger(_ context.Context, entry *domain.PointsLedgerEntry) error {
	t.s.ledger = append(t.s.ledger, *entry)
	n := len(t.s.ledger) - 1
	t.undo = append(t.undo, func() { t.s.ledger = t.s.ledger[:n] })

	userID := entry.UserID
	prev, existed := t.s.balances[userID]
	next := prev
	next.UserID = userID
	next.Points += int64(entry.Amount)
	next.UpdatedAt = t.s.now()
	t.s.balances[userID] = next
	t.undo = append(t.undo, func() {
		if existed {
			t.s.balances[userID] = prev
		} else {
			delete(t.s.balances, userID)
		}
	})
	return nil
}

func (t *memTx) updateCapture(id string, mutate func(*domain.Capture)) error {
	c, ok := t.s.captures[id]
	if !ok {
		return fmt.Errorf("failed to update capture: %s missing", id)
	}
	prev := c
	mutate(&c)
	t.s.captures[id] = c
	t.undo = append(t.undo, func() { t.s.captures[id] = prev })
	return nil
}
