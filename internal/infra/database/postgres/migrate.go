package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE TABLE IF NOT EXISTS market.quotes (
		symbol     VARCHAR(5)    PRIMARY KEY,
		price      NUMERIC(18,4) NOT NULL CHECK (price >= 0),
		volume     BIGINT        NOT NULL DEFAULT 0 CHECK (volume >= 0),
		currency   VARCHAR(3)    NOT NULL DEFAULT 'USD',
		updated_ts TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_updated_ts ON market.quotes (updated_ts DESC)`,
}

// Migrate creates the market schema and quotes table. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, stmt := range migrations {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	log.Info().Int("steps", len(migrations)).Msg("PostgreSQL schema is up to date")
	return nil
}
