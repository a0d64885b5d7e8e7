package domain

import "time"

// LedgerKind identifies why points were granted
type LedgerKind string

const (
	LedgerKindCaptureBase  LedgerKind = "capture_base"
	LedgerKindRallyReward  LedgerKind = "rally_reward"
	LedgerKindMomentOfGame LedgerKind = "moment_of_game"
)

// Labels shown to users in their points history
const (
	LabelCaptureBase  = "Capture posted"
	LabelRallyReward  = "Rally cast"
	LabelMomentOfGame = "Moment of the Game"
)

// PointsLedgerEntry is an immutable record of a point grant. A user's balance
// is always the sum of their entries.
type PointsLedgerEntry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	EventID   string     `json:"event_id"`
	CaptureID string     `json:"capture_id,omitempty"`
	Kind      LedgerKind `json:"kind"`
	Amount    int        `json:"amount"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
}

// Balance is the running total of a user's ledger entries
type Balance struct {
	UserID    string    `json:"user_id"`
	Points    int64     `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PointsSummary represents a user's balance and recent point history
type PointsSummary struct {
	UserID    string               `json:"user_id"`
	Balance   int64                `json:"balance"`
	LedgerSum int64                `json:"ledger_sum"`
	Entries   []*PointsLedgerEntry `json:"entries"`
}
