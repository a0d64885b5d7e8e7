package repository

import (
	"context"
	"fmt"

	"rally-api/internal/domain"
	"rally-api/pkg/database"
)

type postgresCaptureRepository struct {
	db *database.PostgresDB
}

func NewCaptureRepository(db *database.PostgresDB) *postgresCaptureRepository {
	return &postgresCaptureRepository{db: db}
}

// GetByID gets a capture by ID. Rally and crown state are read from the
// primary so a client sees its own writes.
func (r *postgresCaptureRepository) GetByID(ctx context.Context, id string) (*domain.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = $1`
	return getCapture(ctx, r.db.Pool, query, id)
}

// ListFeed lists the non-reported captures of an event
func (r *postgresCaptureRepository) ListFeed(ctx context.Context, eventID string, sort domain.FeedSort, limit int) ([]*domain.Capture, error) {
	orderBy := `created_at DESC, id ASC`
	if sort == domain.FeedSortTop {
		orderBy = `rally_count DESC, created_at ASC, id ASC`
	}

	query := `
		SELECT ` + captureColumns + `
		FROM captures
		WHERE event_id = $1 AND NOT is_reported
		ORDER BY ` + orderBy + `
		LIMIT $2
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}

	return collectCaptures(rows)
}

// GetMomentOfGame gets the crowned capture of an event
func (r *postgresCaptureRepository) GetMomentOfGame(ctx context.Context, eventID string) (*domain.Capture, error) {
	return currentMomentOfGame(ctx, r.db.GetReadPool(), eventID)
}

// RalliedCaptureIDs gets the IDs of captures in an event rallied by a voter
func (r *postgresCaptureRepository) RalliedCaptureIDs(ctx context.Context, eventID, voterID string) (map[string]bool, error) {
	query := `SELECT capture_id FROM rallies WHERE event_id = $1 AND voter_id = $2`

	rows, err := r.db.Pool.Query(ctx, query, eventID, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rallied captures: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var captureID string
		if err := rows.Scan(&captureID); err != nil {
			return nil, fmt.Errorf("failed to scan rallied capture: %w", err)
		}
		ids[captureID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rallied captures: %w", err)
	}

	return ids, nil
}

// CountVoterRallies counts a voter's rallies in an event
func (r *postgresCaptureRepository) CountVoterRallies(ctx context.Context, eventID, voterID string) (int, error) {
	return countVoterRallies(ctx, r.db.Pool, eventID, voterID)
}

// MarkReported flags a capture as reported
func (r *postgresCaptureRepository) MarkReported(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE captures SET is_reported = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to report capture: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
