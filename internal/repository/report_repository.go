package repository

import (
	"context"
	"fmt"
	"time"

	"rally-api/internal/domain"
	"rally-api/pkg/database"
)

// postgresReportRepository runs the reporting scans against the read pool
type postgresReportRepository struct {
	db *database.PostgresDB
}

func NewReportRepository(db *database.PostgresDB) *postgresReportRepository {
	return &postgresReportRepository{db: db}
}

// SeasonLeaderboard aggregates rallies, captures and crowns per author
func (r *postgresReportRepository) SeasonLeaderboard(ctx context.Context, since *time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT user_id,
		       COALESCE(SUM(rally_count), 0)::BIGINT AS total_rallies,
		       COUNT(*) AS capture_count,
		       COUNT(*) FILTER (WHERE is_moment_of_game) AS moments_of_game
		FROM captures
		WHERE NOT is_reported
		  AND ($1::TIMESTAMPTZ IS NULL OR created_at >= $1)
		GROUP BY user_id
		ORDER BY total_rallies DESC, capture_count DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get season leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.TotalRallies, &entry.CaptureCount, &entry.MomentsOfGame); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}

// CapturesSince lists non-reported captures created in a window
func (r *postgresReportRepository) CapturesSince(ctx context.Context, since time.Time) ([]domain.AttributionCapture, error) {
	query := `
		SELECT c.id, c.event_id, e.name, c.moment_type, c.rally_count, c.created_at
		FROM captures c
		JOIN events e ON e.id = c.event_id
		WHERE NOT c.is_reported AND c.created_at >= $1
		ORDER BY c.created_at ASC
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to scan captures for attribution: %w", err)
	}
	defer rows.Close()

	captures := make([]domain.AttributionCapture, 0)
	for rows.Next() {
		var c domain.AttributionCapture
		if err := rows.Scan(&c.CaptureID, &c.EventID, &c.EventName, &c.MomentType, &c.RallyCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attribution capture: %w", err)
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attribution captures: %w", err)
	}

	return captures, nil
}
