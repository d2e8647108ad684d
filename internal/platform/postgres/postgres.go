// Package postgres opens the two handles the server uses against one
// database: a pgx pool for the account store and a database/sql handle
// (lib/pq) for the audit outbox and its relay.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"penny/internal/platform/config"
	"penny/migrations"
)

type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open connects both handles and pings them. Returns nil when no URL is set.
func Open(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open database/sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		pool.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &DB{Pool: pool, SQL: sqlDB}, nil
}

// Migrate applies the embedded schema.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Apply(ctx, poolExecer{pool: d.Pool})
}

// Health checks the pool.
func (d *DB) Health(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *DB) Close() {
	d.Pool.Close()
	_ = d.SQL.Close()
}

type poolExecer struct {
	pool *pgxpool.Pool
}

func (e poolExecer) Exec(ctx context.Context, sql string) error {
	_, err := e.pool.Exec(ctx, sql)
	return err
}
