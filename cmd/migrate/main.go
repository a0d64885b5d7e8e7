package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"rally-api/internal/domain"
	"rally-api/internal/service/auth"
	"rally-api/pkg/database"
	"rally-api/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [up|down|seed|token <user-id> [role]]"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Tokens need only the secret
	if command == "token" {
		if err := printToken(os.Args[2:]); err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		return
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	switch command {
	case "up":
		if err := database.MigrateUp(dbURL); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		fmt.Println("✅ Migrations applied successfully")

	case "down":
		if err := database.MigrateDown(dbURL); err != nil {
			log.Fatalf("Failed to revert migrations: %v", err)
		}
		fmt.Println("✅ Migrations reverted successfully")

	case "seed":
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer conn.Close(ctx)

		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

// seedData loads demo events. Events belong to the scheduling system, so
// this is the only writer of the events table outside tests.
func seedData(ctx context.Context, conn *pgx.Conn) error {
	now := time.Now().UTC()
	events := []domain.Event{
		{ID: "demo-final", Name: "Championship Final", Significance: domain.SignificanceChampionship, Status: domain.EventStatusLive, StartsAt: now.Add(-time.Hour)},
		{ID: "demo-derby", Name: "Rivalry Derby", Significance: domain.SignificanceRivalry, Status: domain.EventStatusLive, StartsAt: now.Add(-30 * time.Minute)},
		{ID: "demo-opener", Name: "Season Opener", Significance: domain.SignificanceRegular, Status: domain.EventStatusCompleted, StartsAt: now.Add(-7 * 24 * time.Hour)},
		{ID: "demo-playoff", Name: "Conference Playoff", Significance: domain.SignificancePostseason, Status: domain.EventStatusUpcoming, StartsAt: now.Add(48 * time.Hour)},
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range events {
		if _, err := tx.Exec(ctx, `
			INSERT INTO events (id, name, significance, status, home_school_id, starts_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, significance = EXCLUDED.significance,
			    status = EXCLUDED.status, starts_at = EXCLUDED.starts_at, updated_at = NOW()`,
			e.ID, e.Name, e.Significance, e.Status, "demo-school", e.StartsAt); err != nil {
			return fmt.Errorf("failed to seed event %s: %w", e.ID, err)
		}
		fmt.Printf("  Seeded event: %s (%s, %s)\n", e.ID, e.Significance, e.Status)
	}

	// The derby gates posting on venue check-in
	if _, err := tx.Exec(ctx, `INSERT INTO event_lobbies (event_id) VALUES ('demo-derby') ON CONFLICT DO NOTHING`); err != nil {
		return fmt.Errorf("failed to seed lobby: %w", err)
	}

	return tx.Commit(ctx)
}

func printToken(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user id is required")
	}
	role := domain.RoleFan
	if len(args) > 1 {
		role = args[1]
	}

	svc := auth.NewService(os.Getenv("JWT_SECRET"), logger.NewNop())
	token, err := svc.IssueToken(args[0], role, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
