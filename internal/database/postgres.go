package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"imagestore/api/internal/config"
)

func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpen)
	poolConfig.MinConns = int32(cfg.MaxIdle)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

const imagesSchema = `
CREATE TABLE IF NOT EXISTS images (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL,
	image_data   BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate bootstraps the schema. It is idempotent and runs once at startup;
// there is no ongoing migration machinery.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, imagesSchema); err != nil {
		return fmt.Errorf("create images table: %w", err)
	}
	return nil
}
