package repository

import (
	"context"
	"time"

	"rally-api/internal/domain"
)

// EventRepository defines read access to events owned by the scheduling system
type EventRepository interface {
	// GetByID retrieves an event by ID, returning nil when it does not exist
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// ListCompletedWithoutCrown lists completed events that have no Moment of the Game yet
	ListCompletedWithoutCrown(ctx context.Context, limit int) ([]*domain.Event, error)
}

// PresenceRepository defines read access to event lobbies and check-ins
type PresenceRepository interface {
	// GetLobby retrieves the lobby for an event, returning nil when the event has none
	GetLobby(ctx context.Context, eventID string) (*domain.Lobby, error)

	// IsActive reports whether the user is currently checked in to the event lobby
	IsActive(ctx context.Context, eventID, userID string) (bool, error)

	// FanCounts returns the checked-in fan count per event for events with a lobby
	FanCounts(ctx context.Context, eventIDs []string) (map[string]int, error)
}

// CaptureRepository defines capture reads and the soft-moderation flag
type CaptureRepository interface {
	// GetByID retrieves a capture by ID, returning nil when it does not exist
	GetByID(ctx context.Context, id string) (*domain.Capture, error)

	// ListFeed lists non-reported captures of an event in feed order
	ListFeed(ctx context.Context, eventID string, sort domain.FeedSort, limit int) ([]*domain.Capture, error)

	// GetMomentOfGame retrieves the crowned capture of an event, if any
	GetMomentOfGame(ctx context.Context, eventID string) (*domain.Capture, error)

	// RalliedCaptureIDs returns the captures of an event the voter has rallied
	RalliedCaptureIDs(ctx context.Context, eventID, voterID string) (map[string]bool, error)

	// CountVoterRallies counts the voter's rallies across all captures of an event
	CountVoterRallies(ctx context.Context, eventID, voterID string) (int, error)

	// MarkReported flags a capture as reported, returning false when it does not exist
	MarkReported(ctx context.Context, id string) (bool, error)
}

// LedgerRepository defines read access to balances and the points ledger
type LedgerRepository interface {
	// GetBalance returns the stored balance of a user (0 when the user has none)
	GetBalance(ctx context.Context, userID string) (int64, error)

	// SumEntries sums every ledger entry of a user
	SumEntries(ctx context.Context, userID string) (int64, error)

	// BalanceWithLedgerSum reads the stored balance and the ledger sum from one snapshot
	BalanceWithLedgerSum(ctx context.Context, userID string) (balance, ledgerSum int64, err error)

	// ListEntries returns the most recent ledger entries of a user
	ListEntries(ctx context.Context, userID string, limit int) ([]*domain.PointsLedgerEntry, error)
}

// ReportRepository defines the scans behind leaderboard and attribution reports
type ReportRepository interface {
	// SeasonLeaderboard aggregates non-reported captures per author
	SeasonLeaderboard(ctx context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error)

	// CapturesSince returns every non-reported capture created at or after since
	CapturesSince(ctx context.Context, since time.Time) ([]domain.AttributionCapture, error)
}

// Tx is a unit of work. Every write goes through a Tx so that capture state,
// rallies, ledger entries and balances change together or not at all.
type Tx interface {
	// GetEvent retrieves an event inside the transaction
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// LockCapture retrieves a capture and holds its row lock until the transaction ends
	LockCapture(ctx context.Context, id string) (*domain.Capture, error)

	// LockVoterBudget serialises rallies of one voter within one event
	LockVoterBudget(ctx context.Context, eventID, voterID string) error

	// LockEventCrown serialises crowning of one event
	LockEventCrown(ctx context.Context, eventID string) error

	// CountVoterRallies counts the voter's rallies across all captures of an event
	CountVoterRallies(ctx context.Context, eventID, voterID string) (int, error)

	// InsertCapture persists a new capture
	InsertCapture(ctx context.Context, capture *domain.Capture) error

	// InsertRally persists a rally. A second rally for the same capture and
	// voter fails with domain.ErrConflict.
	InsertRally(ctx context.Context, rally *domain.Rally) error

	// IncrementRallyCount atomically adds one rally and returns the new count
	IncrementRallyCount(ctx context.Context, captureID string) (int, error)

	// UpdateTotalPoints stores a recomputed score
	UpdateTotalPoints(ctx context.Context, captureID string, totalPoints int) error

	// TopCrownCandidate returns the non-reported capture with the most rallies,
	// earliest first on ties
	TopCrownCandidate(ctx context.Context, eventID string) (*domain.Capture, error)

	// CurrentMomentOfGame returns the crowned capture of an event, if any
	CurrentMomentOfGame(ctx context.Context, eventID string) (*domain.Capture, error)

	// ClearMomentOfGame removes the crown from every capture of an event
	ClearMomentOfGame(ctx context.Context, eventID string) error

	// SetMomentOfGame crowns a capture
	SetMomentOfGame(ctx context.Context, captureID string) error

	// AppendLedger appends a ledger entry and adds its amount to the user's balance
	AppendLedger(ctx context.Context, entry *domain.PointsLedgerEntry) error
}

// TxManager runs units of work
type TxManager interface {
	// WithinTx commits when fn returns nil and rolls back every write otherwise
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Events   EventRepository
	Presence PresenceRepository
	Captures CaptureRepository
	Ledger   LedgerRepository
	Reports  ReportRepository
	Tx       TxManager
}
