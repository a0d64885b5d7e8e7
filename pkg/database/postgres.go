package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB holds the write pool and an optional read replica pool
type PostgresDB struct {
	Pool     *pgxpool.Pool
	ReadPool *pgxpool.Pool
}

// NewPostgresDB creates PostgreSQL connection pools. When readURL is empty or
// equal to databaseURL, reads share the write pool.
func NewPostgresDB(ctx context.Context, databaseURL, readURL string) (*PostgresDB, error) {
	pool, err := newPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	db := &PostgresDB{Pool: pool}

	if readURL != "" && readURL != databaseURL {
		readPool, err := newPool(ctx, readURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create read pool: %w", err)
		}
		db.ReadPool = readPool
	}

	return db, nil
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Rally bursts at big moments hit the same rows, keep headroom for lock waits
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.ConnectTimeout = time.Second * 5
	config.ConnConfig.RuntimeParams["application_name"] = "rally-api"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// GetReadPool returns the replica pool, falling back to the write pool
func (db *PostgresDB) GetReadPool() *pgxpool.Pool {
	if db.ReadPool != nil {
		return db.ReadPool
	}
	return db.Pool
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *PostgresDB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// Close closes the database connection pools
func (db *PostgresDB) Close() {
	if db.ReadPool != nil {
		db.ReadPool.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks the database connection
func (db *PostgresDB) Health(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}
	if db.ReadPool != nil {
		return db.ReadPool.Ping(ctx)
	}
	return nil
}
