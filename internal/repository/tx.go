package repository

import (
	"context"
	"fmt"

	"rally-api/internal/domain"
	"rally-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

const rallyPairConstraint = "rallies_capture_voter_key"

// PostgresTxManager runs units of work in PostgreSQL transactions
type PostgresTxManager struct {
	db *database.PostgresDB
}

func NewPostgresTxManager(db *database.PostgresDB) *PostgresTxManager {
	return &PostgresTxManager{db: db}
}

// WithinTx runs fn in a read committed transaction
func (m *PostgresTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return m.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return getEvent(ctx, t.tx, id)
}

func (t *pgTx) LockCapture(ctx context.Context, id string) (*domain.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = $1 FOR UPDATE`
	return getCapture(ctx, t.tx, query, id)
}

// LockVoterBudget takes a transaction-scoped advisory lock keyed by voter and
// event. Two rallies by the same voter in the same event cannot both read a
// count of 11.
func (t *pgTx) LockVoterBudget(ctx context.Context, eventID, voterID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "rally:"+voterID+":"+eventID)
	if err != nil {
		return fmt.Errorf("failed to lock rally budget: %w", err)
	}
	return nil
}

func (t *pgTx) LockEventCrown(ctx context.Context, eventID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "crown:"+eventID)
	if err != nil {
		return fmt.Errorf("failed to lock event crown: %w", err)
	}
	return nil
}

func (t *pgTx) CountVoterRallies(ctx context.Context, eventID, voterID string) (int, error) {
	return countVoterRallies(ctx, t.tx, eventID, voterID)
}

func (t *pgTx) InsertCapture(ctx context.Context, capture *domain.Capture) error {
	query := `
		INSERT INTO captures (
			id, event_id, user_id, image_ref, caption, moment_type, is_in_stadium,
			base_points, rally_count, total_points, is_moment_of_game, is_reported, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := t.tx.Exec(ctx, query,
		capture.ID,
		capture.EventID,
		capture.UserID,
		capture.ImageRef,
		capture.Caption,
		capture.MomentType,
		capture.IsInStadium,
		capture.BasePoints,
		capture.RallyCount,
		capture.TotalPoints,
		capture.IsMomentOfGame,
		capture.IsReported,
		capture.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create capture: %w", err)
	}
	return nil
}

func (t *pgTx) InsertRally(ctx context.Context, rally *domain.Rally) error {
	query := `
		INSERT INTO rallies (id, capture_id, event_id, voter_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := t.tx.Exec(ctx, query, rally.ID, rally.CaptureID, rally.EventID, rally.VoterID, rally.CreatedAt)
	if isUniqueViolation(err, rallyPairConstraint) {
		return fmt.Errorf("%w: capture already rallied by this user", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create rally: %w", err)
	}
	return nil
}

func (t *pgTx) IncrementRallyCount(ctx context.Context, captureID string) (int, error) {
	var count int
	query := `UPDATE captures SET rally_count = rally_count + 1 WHERE id = $1 RETURNING rally_count`

	if err := t.tx.QueryRow(ctx, query, captureID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment rally count: %w", err)
	}
	return count, nil
}

func (t *pgTx) UpdateTotalPoints(ctx context.Context, captureID string, totalPoints int) error {
	_, err := t.tx.Exec(ctx, `UPDATE captures SET total_points = $2 WHERE id = $1`, captureID, totalPoints)
	if err != nil {
		return fmt.Errorf("failed to update total points: %w", err)
	}
	return nil
}

func (t *pgTx) TopCrownCandidate(ctx context.Context, eventID string) (*domain.Capture, error) {
	query := `
		SELECT ` + captureColumns + `
		FROM captures
		WHERE event_id = $1 AND NOT is_reported
		ORDER BY rally_count DESC, created_at ASC, id ASC
		LIMIT 1
	`
	return getCapture(ctx, t.tx, query, eventID)
}

func (t *pgTx) CurrentMomentOfGame(ctx context.Context, eventID string) (*domain.Capture, error) {
	return currentMomentOfGame(ctx, t.tx, eventID)
}

func (t *pgTx) ClearMomentOfGame(ctx context.Context, eventID string) error {
	query := `UPDATE captures SET is_moment_of_game = FALSE WHERE event_id = $1 AND is_moment_of_game`
	if _, err := t.tx.Exec(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to clear moment of the game: %w", err)
	}
	return nil
}

func (t *pgTx) SetMomentOfGame(ctx context.Context, captureID string) error {
	if _, err := t.tx.Exec(ctx, `UPDATE captures SET is_moment_of_game = TRUE WHERE id = $1`, captureID); err != nil {
		return fmt.Errorf("failed to set moment of the game: %w", err)
	}
	return nil
}

// AppendLedger writes the entry and the balance increment in the same transaction
func (t *pgTx) AppendLedger(ctx context.Context, entry *domain.PointsLedgerEntry) error {
	query := `
		INSERT INTO points_ledger (id, user_id, event_id, capture_id, kind, amount, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.EventID,
		nullableString(entry.CaptureID),
		entry.Kind,
		entry.Amount,
		entry.Label,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	balanceQuery := `
		INSERT INTO user_balances (user_id, points, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET points = user_balances.points + EXCLUDED.points,
		    updated_at = NOW()
	`

	if _, err := t.tx.Exec(ctx, balanceQuery, entry.UserID, entry.Amount); err != nil {
		return fmt.Errorf("failed to increment balance: %w", err)
	}
	return nil
}
