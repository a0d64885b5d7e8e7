package service

import (
	"context"
	"time"

	"rally-api/internal/domain"
)

// AuthService defines access token handling
type AuthService interface {
	// ValidateToken verifies a bearer token and returns the caller it names
	ValidateToken(ctx context.Context, token string) (*domain.UserProfile, error)

	// IssueToken signs a token for userID with the given role
	IssueToken(userID, role string, ttl time.Duration) (string, error)
}

// CaptureService defines capture posting and moderation
type CaptureService interface {
	// PostCapture posts a capture to a live event and credits its base points
	PostCapture(ctx context.Context, req domain.PostCaptureRequest) (*domain.PostCaptureResult, error)

	// GetCapture retrieves a capture by ID
	GetCapture(ctx context.Context, captureID string) (*domain.Capture, error)

	// ReportCapture hides a capture from feeds, leaderboards and crowning
	ReportCapture(ctx context.Context, captureID, reporterID string) error
}

// RallyService defines rally casting and the event feed
type RallyService interface {
	// CastRally spends one of the voter's rallies for the event on a capture
	CastRally(ctx context.Context, captureID, voterID string) (*domain.RallyResult, error)

	// GetFeed lists an event's captures as seen by voterID, which may be empty
	GetFeed(ctx context.Context, eventID, voterID string, sort domain.FeedSort, limit int) (*domain.FeedView, error)
}

// CrownService defines Moment of the Game selection
type CrownService interface {
	// CrownMomentOfGame crowns the most rallied capture of an event
	CrownMomentOfGame(ctx context.Context, eventID string) (*domain.CrownResult, error)
}

// ReportService defines read-only rollups
type ReportService interface {
	// SeasonLeaderboard ranks capture authors by rallies received
	SeasonLeaderboard(ctx context.Context) (*domain.LeaderboardView, error)

	// Attribution summarises sponsored engagement over the trailing windowDays
	Attribution(ctx context.Context, windowDays int) (*domain.AttributionView, error)

	// PointsSummary returns a user's balance and recent ledger entries
	PointsSummary(ctx context.Context, userID string, limit int) (*domain.PointsSummary, error)
}

// CrownScheduler crowns completed events in the background
type CrownScheduler interface {
	// Start begins periodic sweeps
	Start(ctx context.Context) error

	// Stop halts sweeps and waits for a running sweep to finish
	Stop(ctx context.Context) error
}

// Services aggregates all service interfaces
type Services struct {
	Auth     AuthService
	Captures CaptureService
	Rallies  RallyService
	Crowns   CrownService
	Reports  ReportService
}
