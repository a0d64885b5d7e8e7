// Package memory provides an in-process implementation of the repository
// interfaces. It backs local development without PostgreSQL and the service
// tests.
//
// Every unit of work holds the store-wide write lock for its whole duration,
// so transactions are serialisable. Writes record an undo step and are
// reverted in reverse order when the unit of work fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/repository"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for presence and balance timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store holds all state in maps guarded by one RWMutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	events   map[string]domain.Event
	lobbies  map[string]domain.Lobby
	presence map[string]domain.Presence
	captures map[string]domain.Capture
	rallies  map[string]domain.Rally
	ledger   []domain.PointsLedgerEntry
	balances map[string]domain.Balance
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		events:   make(map[string]domain.Event),
		lobbies:  make(map[string]domain.Lobby),
		presence: make(map[string]domain.Presence),
		captures: make(map[string]domain.Capture),
		rallies:  make(map[string]domain.Rally),
		balances: make(map[string]domain.Balance),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Events:   eventRepo{s},
		Presence: presenceRepo{s},
		Captures: captureRepo{s},
		Ledger:   ledgerRepo{s},
		Reports:  reportRepo{s},
		Tx:       s,
	}
}

// PutEvent inserts or replaces an event. Events belong to the scheduling
// system, so this is the seeding entry point.
func (s *Store) PutEvent(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	event.UpdatedAt = s.now()
	s.events[event.ID] = event
}

// SetEventStatus moves an event through its lifecycle.
func (s *Store) SetEventStatus(eventID string, status domain.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	event.Status = status
	event.UpdatedAt = s.now()
	s.events[eventID] = event
	return nil
}

// OpenLobby creates the check-in lobby of an event.
func (s *Store) OpenLobby(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lobbies[eventID]; !ok {
		s.lobbies[eventID] = domain.Lobby{EventID: eventID, CreatedAt: s.now()}
	}
}

// CheckIn marks a user active or inactive in an event lobby and keeps the
// lobby fan count in step.
func (s *Store) CheckIn(eventID, userID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[eventID]
	if !ok {
		lobby = domain.Lobby{EventID: eventID, CreatedAt: s.now()}
	}

	key := presenceKey(eventID, userID)
	prev := s.presence[key]
	switch {
	case active && !prev.IsActive:
		lobby.FanCount++
	case !active && prev.IsActive:
		lobby.FanCount--
	}
	s.lobbies[eventID] = lobby
	s.presence[key] = domain.Presence{EventID: eventID, UserID: userID, IsActive: active, UpdatedAt: s.now()}
}

// WithinTx runs fn while holding the write lock and reverts every write
// when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func presenceKey(eventID, userID string) string {
	return eventID + "\x00" + userID
}

func rallyKey(captureID, voterID string) string {
	return captureID + "\x00" + voterID
}

// countRallies must be called with the lock held.
func (s *Store) countRallies(eventID, voterID string) int {
	n := 0
	for _, r := range s.rallies {
		if r.EventID == eventID && r.VoterID == voterID {
			n++
		}
	}
	return n
}

// crowned must be called with the lock held.
func (s *Store) crowned(eventID string) *domain.Capture {
	for _, c := range s.captures {
		if c.EventID == eventID && c.IsMomentOfGame {
			c := c
			return &c
		}
	}
	return nil
}

// sortedCaptures must be called with the lock held.
func (s *Store) sortedCaptures(keep func(domain.Capture) bool, less func(a, b domain.Capture) bool) []domain.Capture {
	out := make([]domain.Capture, 0)
	for _, c := range s.captures {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byLatest(a, b domain.Capture) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func byTop(a, b domain.Capture) bool {
	if a.RallyCount != b.RallyCount {
		return a.RallyCount > b.RallyCount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func copyCapture(c domain.Capture) *domain.Capture {
	if c.Caption != nil {
		caption := strings.Clone(*c.Caption)
		c.Caption = &caption
	}
	return &c
}
