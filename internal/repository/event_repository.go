package repository

import (
	"context"
	"fmt"

	"rally-api/internal/domain"
	"rally-api/pkg/database"
)

type postgresEventRepository struct {
	db *database.PostgresDB
}

func NewEventRepository(db *database.PostgresDB) *postgresEventRepository {
	return &postgresEventRepository{db: db}
}

// GetByID gets an event by ID
func (r *postgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, r.db.GetReadPool(), id)
}

// ListCompletedWithoutCrown lists completed events that still have a crownable capture
func (r *postgresEventRepository) ListCompletedWithoutCrown(ctx context.Context, limit int) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events e
		WHERE e.status = 'COMPLETED'
		  AND NOT EXISTS (
		      SELECT 1 FROM captures c WHERE c.event_id = e.id AND c.is_moment_of_game
		  )
		  AND EXISTS (
		      SELECT 1 FROM captures c WHERE c.event_id = e.id AND NOT c.is_reported AND c.rally_count > 0
		  )
		ORDER BY e.starts_at ASC
		LIMIT $1
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncrowned events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}
