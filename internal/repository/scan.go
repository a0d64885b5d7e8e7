package repository

import (
	"context"
	"errors"
	"fmt"

	"rally-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const eventColumns = `id, name, significance, status, home_school_id, starts_at, created_at, updated_at`

const captureColumns = `id, event_id, user_id, image_ref, caption, moment_type, is_in_stadium,
	base_points, rally_count, total_points, is_moment_of_game, is_reported, created_at`

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var event domain.Event
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Significance,
		&event.Status,
		&event.HomeSchoolID,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func scanCapture(row pgx.Row) (*domain.Capture, error) {
	var capture domain.Capture
	err := row.Scan(
		&capture.ID,
		&capture.EventID,
		&capture.UserID,
		&capture.ImageRef,
		&capture.Caption,
		&capture.MomentType,
		&capture.IsInStadium,
		&capture.BasePoints,
		&capture.RallyCount,
		&capture.TotalPoints,
		&capture.IsMomentOfGame,
		&capture.IsReported,
		&capture.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &capture, nil
}

func collectCaptures(rows pgx.Rows) ([]*domain.Capture, error) {
	defer rows.Close()

	captures := make([]*domain.Capture, 0)
	for rows.Next() {
		capture, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, capture)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	return captures, nil
}

func getEvent(ctx context.Context, q querier, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func getCapture(ctx context.Context, q querier, query string, args ...any) (*domain.Capture, error) {
	capture, err := scanCapture(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return capture, nil
}

func countVoterRallies(ctx context.Context, q querier, eventID, voterID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM rallies WHERE event_id = $1 AND voter_id = $2`

	if err := q.QueryRow(ctx, query, eventID, voterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count voter rallies: %w", err)
	}
	return count, nil
}

func currentMomentOfGame(ctx context.Context, q querier, eventID string) (*domain.Capture, error) {
	query := `SELECT ` + captureColumns + `
		FROM captures
		WHERE event_id = $1 AND is_moment_of_game
		LIMIT 1`
	return getCapture(ctx, q, query, eventID)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
