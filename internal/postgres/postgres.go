// Package postgres owns the pgx connection pool and the relational schema.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Config holds pool parameters.
type Config struct {
	DSN             string
	MaxConns        int32
	ConnectTimeout  time.Duration
	ConnectAttempts int
	RetryDelay      time.Duration
}

// NewPool parses cfg.DSN, tunes the pool, and pings until the database
// answers or the attempts run out.
func NewPool(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	attempts := max(cfg.ConnectAttempts, 1)
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return pool, nil
		}
		if i >= attempts {
			break
		}
		logger.WarnContext(ctx, "postgres.ping_failed",
			slog.Int("attempt", i),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("postgres: connect: %w", ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("postgres: ping after %d attempts: %w", attempts, err)
}

// Migrate applies the embedded schema. Every statement is idempotent, and
// argument-free Exec runs over the simple protocol, which accepts multiple statements.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded DDL.
func Schema() string {
	return schemaSQL
}
