// Package database provides database connection utilities.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PoolOption configures the connection pool.
type PoolOption func(*pgxpool.Config)

// WithAfterConnect sets a callback run on each new connection (e.g. for type registration).
func WithAfterConnect(fn func(context.Context, *pgx.Conn) error) PoolOption {
	return func(c *pgxpool.Config) {
		c.AfterConnect = fn
	}
}

// WithVectorTypes registers the pgvector types (vector, halfvec, sparsevec) on each connection.
// The vector extension must already exist in the database.
func WithVectorTypes() PoolOption {
	return WithAfterConnect(pgxvec.RegisterTypes)
}

// WithMaxConns caps the pool size. Values <= 0 keep the pgx default.
func WithMaxConns(n int) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = int32(n) //nolint:gosec // validated by config
		}
	}
}

// WithMaxConnIdleTime closes connections idle for longer than d.
func WithMaxConnIdleTime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnIdleTime = d
		}
	}
}

// NewPostgresPool creates a new PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL", "max_conns", config.MaxConns)

	return pool, nil
}

// EnsureExtension creates a PostgreSQL extension if it is missing. It uses a dedicated
// connection so it can run before a pool whose AfterConnect hook depends on the extension.
func EnsureExtension(ctx context.Context, databaseURL, extension string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	defer func() { _ = conn.Close(ctx) }()

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS "+pgx.Identifier{extension}.Sanitize()); err != nil {
		return fmt.Errorf("create extension %s: %w", extension, err)
	}

	return nil
}
