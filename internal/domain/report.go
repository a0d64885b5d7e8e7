package domain

import "time"

// SeasonLeaderboardSize caps the season leaderboard
const SeasonLeaderboardSize = 50

// CrownResult represents the outcome of crowning an event's Moment of the Game
type CrownResult struct {
	EventID           string `json:"event_id"`
	CaptureID         string `json:"capture_id"`
	UserID            string `json:"user_id"`
	RallyCount        int    `json:"rally_count"`
	BonusPoints       int    `json:"bonus_points"`
	BonusPaid         bool   `json:"bonus_paid"`
	PreviousCaptureID string `json:"previous_capture_id,omitempty"`
}

// LeaderboardEntry represents one author in the season leaderboard
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	TotalRallies  int    `json:"total_rallies"`
	CaptureCount  int    `json:"capture_count"`
	MomentsOfGame int    `json:"moments_of_game"`
}

// LeaderboardView represents the season leaderboard
type LeaderboardView struct {
	Entries     []LeaderboardEntry `json:"entries"`
	SeasonStart *time.Time         `json:"season_start,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// AttributionCapture is the slice of capture state read for attribution
type AttributionCapture struct {
	CaptureID  string     `json:"capture_id"`
	EventID    string     `json:"event_id"`
	EventName  string     `json:"event_name"`
	MomentType MomentType `json:"moment_type"`
	RallyCount int        `json:"rally_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EventAttribution breaks sponsored engagement down by event
type EventAttribution struct {
	EventID       string `json:"event_id"`
	EventName     string `json:"event_name"`
	Captures      int    `json:"captures"`
	Rallies       int    `json:"rallies"`
	CheckedInFans int    `json:"checked_in_fans"`
}

// MomentTypeCount is one bucket of the moment type distribution
type MomentTypeCount struct {
	MomentType MomentType `json:"moment_type"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// AttributionView represents sponsor attribution over a trailing window
type AttributionView struct {
	WindowDays         int                `json:"window_days"`
	Since              time.Time          `json:"since"`
	TotalCaptures      int                `json:"total_captures"`
	TotalRallies       int                `json:"total_rallies"`
	TotalCheckedInFans int                `json:"total_checked_in_fans"`
	EngagementRate     float64            `json:"engagement_rate"`
	ByEvent            []EventAttribution `json:"by_event"`
	Distribution       []MomentTypeCount  `json:"distribution"`
	GeneratedAt        time.Time          `json:"generated_at"`
}
