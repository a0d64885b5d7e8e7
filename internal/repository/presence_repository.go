package repository

import (
	"context"
	"errors"
	"fmt"

	"rally-api/internal/domain"
	"rally-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

type postgresPresenceRepository struct {
	db *database.PostgresDB
}

func NewPresenceRepository(db *database.PostgresDB) *postgresPresenceRepository {
	return &postgresPresenceRepository{db: db}
}

// GetLobby gets the lobby of an event
func (r *postgresPresenceRepository) GetLobby(ctx context.Context, eventID string) (*domain.Lobby, error) {
	var lobby domain.Lobby
	query := `SELECT event_id, fan_count, created_at FROM event_lobbies WHERE event_id = $1`

	err := r.db.GetReadPool().QueryRow(ctx, query, eventID).Scan(&lobby.EventID, &lobby.FanCount, &lobby.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby: %w", err)
	}

	return &lobby, nil
}

// IsActive checks whether a user is checked in to an event lobby
func (r *postgresPresenceRepository) IsActive(ctx context.Context, eventID, userID string) (bool, error) {
	var active bool
	query := `SELECT is_active FROM lobby_presence WHERE event_id = $1 AND user_id = $2`

	err := r.db.Pool.QueryRow(ctx, query, eventID, userID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get presence: %w", err)
	}

	return active, nil
}

// FanCounts gets checked-in fan counts for the given events
func (r *postgresPresenceRepository) FanCounts(ctx context.Context, eventIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	query := `SELECT event_id, fan_count FROM event_lobbies WHERE event_id = ANY($1)`

	rows, err := r.db.GetReadPool().Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get fan counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID string
		var fanCount int
		if err := rows.Scan(&eventID, &fanCount); err != nil {
			return nil, fmt.Errorf("failed to scan fan count: %w", err)
		}
		counts[eventID] = fanCount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fan counts: %w", err)
	}

	return counts, nil
}
