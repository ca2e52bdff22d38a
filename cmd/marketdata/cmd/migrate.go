package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
	"github.com/MichalDSW/investment-platform/internal/infra/database/postgres"
	"github.com/MichalDSW/investment-platform/internal/infra/database/sqlite"
	"github.com/MichalDSW/investment-platform/internal/infra/memory"
	"github.com/MichalDSW/investment-platform/internal/pkg/config"
)

func newMigrateCmd(opts *options) *cobra.Command {
	var (
		driver string
		seed   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the quotes schema",
		Long: `Creates the quotes table for the postgres or sqlite source.
Safe to run repeatedly. --seed loads the default quote set.

Examples:
  marketdata migrate --driver sqlite --seed
  DATABASE_URL=postgres://... marketdata migrate --driver postgres`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				driver = opts.cfg.Source.Driver
			}
			return runMigrate(cmd.Context(), opts.cfg, driver, seed)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "postgres or sqlite (default: QUOTE_SOURCE)")
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the default quotes after migrating")

	return cmd
}

func runMigrate(ctx context.Context, cfg *config.Config, driver string, seed bool) error {
	var repo quote.Repository

	switch driver {
	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool.Pool); err != nil {
			return err
		}
		repo = postgres.NewQuoteRepository(pool.Pool)

	case config.SourceSQLite:
		// Open migrates
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		repo = store

	default:
		return fmt.Errorf("source %q has no schema to migrate (use postgres or sqlite)", driver)
	}

	if !seed {
		return nil
	}
	return seedQuotes(ctx, repo)
}

func seedQuotes(ctx context.Context, repo quote.Repository) error {
	quotes := memory.DefaultQuotes(time.Now().UTC())
	for _, q := range quotes {
		if err := repo.Upsert(ctx, q); err != nil {
			return fmt.Errorf("seed %s: %w", q.Symbol, err)
		}
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("seeded", len(quotes)).Int("total", n).Str("source", repo.Name()).Msg("✅ Quotes seeded")
	return nil
}
