package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// Config holds the query service settings
type Config struct {
	UpstreamTimeout time.Duration // budget for one GetQuote/GetQuotes call
	MaxConcurrency  int           // parallel lookups per batch
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		UpstreamTimeout: 5 * time.Second,
		MaxConcurrency:  8,
	}
}

// Service answers quote queries against a quote.Source
type Service struct {
	source quote.Source
	cfg    Config
	sf     singleflight.Group
}

// NewService creates a new Service
func NewService(source quote.Source, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = def.UpstreamTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	return &Service{source: source, cfg: cfg}
}

// SourceName reports the configured backend
func (s *Service) SourceName() string { return s.source.Name() }

// Batch is one page of a multi-symbol query
type Batch struct {
	Quotes []quote.Quote
	Page   int
	Limit  int
	Total  int // number of requested symbols
}

// GetQuote validates symbol and returns its current quote
func (s *Service) GetQuote(ctx context.Context, symbol string) (*quote.Quote, error) {
	sym, err := quote.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	return s.lookup(ctx, sym)
}

// GetQuotes returns quotes for one page of symbols in input order.
// page defaults to 1; limit defaults to len(symbols) and is capped at quote.MaxSymbols.
func (s *Service) GetQuotes(ctx context.Context, symbols []string, page, limit int) (*Batch, error) {
	if len(symbols) == 0 {
		return nil, quote.ErrSymbolsRequired
	}
	if len(symbols) > quote.MaxSymbols {
		return nil, fmt.Errorf("%w: %d requested, max %d", quote.ErrTooManySymbols, len(symbols), quote.MaxSymbols)
	}

	normalized := make([]string, len(symbols))
	for i, raw := range symbols {
		sym, err := quote.NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		normalized[i] = sym
	}

	page, limit = normalizePage(page, limit, len(normalized))
	batch := &Batch{
		Quotes: []quote.Quote{},
		Page:   page,
		Limit:  limit,
		Total:  len(normalized),
	}

	start := (page - 1) * limit
	if start >= len(normalized) {
		return batch, nil
	}
	end := min(start+limit, len(normalized))
	selected := normalized[start:end]

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	results := make([]quote.Quote, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)

	for i, sym := range selected {
		g.Go(func() error {
			// a failed or expired batch starts no further lookups
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := s.lookup(gctx, sym)
			if err != nil {
				return err
			}
			results[i] = *q
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch.Quotes = results
	return batch, nil
}

// lookup coalesces concurrent requests for the same symbol; each caller
// still honours its own deadline.
func (s *Service) lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	ch := s.sf.DoChan(symbol, func() (interface{}, error) {
		// detached so one caller's cancellation doesn't fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UpstreamTimeout)
		defer cancel()
		return s.source.Lookup(lctx, symbol)
	})

	select {
	case <-ctx.Done():
		return nil, classify(symbol, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, classify(symbol, res.Err)
		}
		q, ok := res.Val.(*quote.Quote)
		if !ok || q == nil {
			return nil, fmt.Errorf("%w: %s returned no quote for %s", quote.ErrUpstream, s.source.Name(), symbol)
		}
		return q.Clone(), nil
	}
}

// classify maps source failures onto the domain error set
func classify(symbol string, err error) error {
	switch {
	case errors.Is(err, quote.ErrQuoteNotFound):
		return fmt.Errorf("%w: %s", quote.ErrQuoteNotFound, symbol)
	case errors.Is(err, quote.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup timed out")
		return fmt.Errorf("%w: %s", quote.ErrUpstreamTimeout, symbol)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, quote.ErrUpstream):
		log.Error().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		return err
	default:
		log.Error().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		return fmt.Errorf("%w: %v", quote.ErrUpstream, err)
	}
}

func normalizePage(page, limit, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = total
	}
	if limit > quote.MaxSymbols {
		limit = quote.MaxSymbols
	}
	return page, limit
}
