package repository

import (
	"context"
	"errors"
	"fmt"

	"rally-api/internal/domain"
	"rally-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

type postgresLedgerRepository struct {
	db *database.PostgresDB
}

func NewLedgerRepository(db *database.PostgresDB) *postgresLedgerRepository {
	return &postgresLedgerRepository{db: db}
}

// GetBalance gets a user's point balance
func (r *postgresLedgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var points int64
	err := r.db.Pool.QueryRow(ctx, `SELECT points FROM user_balances WHERE user_id = $1`, userID).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return points, nil
}

// SumEntries sums a user's ledger entries
func (r *postgresLedgerRepository) SumEntries(ctx context.Context, userID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM points_ledger WHERE user_id = $1`

	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}

// BalanceWithLedgerSum reads both figures in one statement so they share a snapshot
func (r *postgresLedgerRepository) BalanceWithLedgerSum(ctx context.Context, userID string) (int64, int64, error) {
	query := `
		SELECT
			COALESCE((SELECT points FROM user_balances WHERE user_id = $1), 0)::BIGINT,
			COALESCE((SELECT SUM(amount) FROM points_ledger WHERE user_id = $1), 0)::BIGINT
	`

	var balance, sum int64
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&balance, &sum); err != nil {
		return 0, 0, fmt.Errorf("failed to read balance and ledger sum: %w", err)
	}
	return balance, sum, nil
}

// ListEntries lists a user's most recent ledger entries
func (r *postgresLedgerRepository) ListEntries(ctx context.Context, userID string, limit int) ([]*domain.PointsLedgerEntry, error) {
	query := `
		SELECT id, user_id, event_id, capture_id, kind, amount, label, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.PointsLedgerEntry, 0)
	for rows.Next() {
		var entry domain.PointsLedgerEntry
		var captureID *string
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.EventID,
			&captureID,
			&entry.Kind,
			&entry.Amount,
			&entry.Label,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if captureID != nil {
			entry.CaptureID = *captureID
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
