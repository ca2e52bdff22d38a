package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MichalDSW/investment-platform/internal/api/handlers"
	"github.com/MichalDSW/investment-platform/internal/domain/quote"
	rediscache "github.com/MichalDSW/investment-platform/internal/infra/cache/redis"
	"github.com/MichalDSW/investment-platform/internal/infra/database/postgres"
	"github.com/MichalDSW/investment-platform/internal/infra/database/sqlite"
	"github.com/MichalDSW/investment-platform/internal/infra/external/alphavantage"
	"github.com/MichalDSW/investment-platform/internal/infra/memory"
	"github.com/MichalDSW/investment-platform/internal/pkg/config"
	"github.com/MichalDSW/investment-platform/internal/service/marketdata"
)

// app holds the long-lived handles built at startup
type app struct {
	cfg      *config.Config
	backing  quote.Source           // configured driver
	source   quote.Source           // backing, behind the cache when enabled
	cache    *rediscache.QuoteCache // nil when caching is off
	service  *marketdata.Service
	checkers map[string]handlers.Checker
	closers  []func()
}

// newApp wires the configured source, the optional cache and the query service
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{
		cfg:      cfg,
		checkers: make(map[string]handlers.Checker),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.backing, err = a.openSource(ctx); err != nil {
		return nil, err
	}
	a.source = a.backing

	if cfg.Cache.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })

		a.cache = rediscache.NewQuoteCache(client, a.backing, cfg.Cache.TTL)
		a.source = a.cache
		a.checkers["redis"] = a.cache
	}

	a.service = marketdata.NewService(a.source, marketdata.Config{
		UpstreamTimeout: cfg.Server.UpstreamTimeout,
		MaxConcurrency:  cfg.Server.MaxConcurrency,
	})

	log.Info().
		Str("source", a.backing.Name()).
		Bool("cache", a.cache != nil).
		Msg("✅ Quote source ready")

	return a, nil
}

func (a *app) openSource(ctx context.Context) (quote.Source, error) {
	switch a.cfg.Source.Driver {
	case config.SourceMemory:
		store := memory.NewSeededQuoteStore()
		a.checkers["source"] = store
		return store, nil

	case config.SourcePostgres:
		pool, err := postgres.NewPool(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.checkers["database"] = pool
		return postgres.NewQuoteRepository(pool.Pool), nil

	case config.SourceSQLite:
		store, err := sqlite.Open(a.cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.checkers["database"] = store
		return store, nil

	case config.SourceAlphaVantage:
		return alphavantage.NewClient(a.cfg.AlphaVantage.APIKey,
			alphavantage.WithBaseURL(a.cfg.AlphaVantage.BaseURL),
			alphavantage.WithTimeout(a.cfg.AlphaVantage.Timeout),
		), nil

	default:
		return nil, fmt.Errorf("unknown quote source %q", a.cfg.Source.Driver)
	}
}

// Close releases handles in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
