package domain

import "time"

// Significance represents how important a game is for scoring
type Significance string

const (
	SignificanceRegular      Significance = "REGULAR"
	SignificanceConference   Significance = "CONFERENCE"
	SignificanceRivalry      Significance = "RIVALRY"
	SignificancePostseason   Significance = "POSTSEASON"
	SignificanceChampionship Significance = "CHAMPIONSHIP"
)

// EventStatus represents where an event is in its lifecycle
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusLive      EventStatus = "LIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// Event represents a scheduled game. Events are owned by the scheduling
// system; this service only reads them.
type Event struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Significance Significance `json:"significance"`
	Status       EventStatus  `json:"status"`
	HomeSchoolID string       `json:"home_school_id"`
	StartsAt     time.Time    `json:"starts_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsLive reports whether captures may be posted to the event
func (e *Event) IsLive() bool {
	return e.Status == EventStatusLive
}

// IsCompleted reports whether the event feed is locked
func (e *Event) IsCompleted() bool {
	return e.Status == EventStatusCompleted
}

// Lobby represents the check-in lobby of an event
type Lobby struct {
	EventID   string    `json:"event_id"`
	FanCount  int       `json:"fan_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Presence represents a user's check-in to an event lobby
type Presence struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}
