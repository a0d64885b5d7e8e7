package domain

import "time"

// Rally budget and reward constants
const (
	// RallyBudgetPerEvent is how many rallies one user may cast across all
	// captures of a single event.
	RallyBudgetPerEvent = 12

	// RallyVoterReward is the points credited to a voter for each rally
	RallyVoterReward = 2
)

// Rally represents one up-vote by one user on one capture
type Rally struct {
	ID        string    `json:"id"`
	CaptureID string    `json:"capture_id"`
	EventID   string    `json:"event_id"`
	VoterID   string    `json:"voter_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RallyResult represents the response after casting a rally
type RallyResult struct {
	CaptureID          string `json:"capture_id"`
	NewRallyCount      int    `json:"new_rally_count"`
	NewTotalPoints     int    `json:"new_total_points"`
	RalliesRemaining   int    `json:"rallies_remaining"`
	VoterPointsAwarded int    `json:"voter_points_awarded"`
}

// FeedSort selects the ordering of an event feed
type FeedSort string

const (
	FeedSortLatest FeedSort = "latest"
	FeedSortTop    FeedSort = "top"
)

// ParseFeedSort returns the requested sort, defaulting to latest
func ParseFeedSort(raw string) FeedSort {
	if FeedSort(raw) == FeedSortTop {
		return FeedSortTop
	}
	return FeedSortLatest
}

// FeedCapture is a capture annotated for the requesting voter
type FeedCapture struct {
	Capture
	HasRallied bool `json:"has_rallied"`
}

// FeedView represents an event feed as seen by one voter
type FeedView struct {
	EventID          string        `json:"event_id"`
	EventStatus      EventStatus   `json:"event_status"`
	Sort             FeedSort      `json:"sort"`
	Captures         []FeedCapture `json:"captures"`
	RalliesRemaining int           `json:"rallies_remaining"`
	MomentOfGame     *Capture      `json:"moment_of_game,omitempty"`
}
