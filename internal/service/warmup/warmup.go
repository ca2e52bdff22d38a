package warmup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// QuoteWriter stores refreshed quotes (implemented by the Redis quote cache)
type QuoteWriter interface {
	Set(ctx context.Context, q quote.Quote) error
}

// Config holds warm-up settings
type Config struct {
	Schedule       string // cron expression with seconds field
	Symbols        []string
	Timeout        time.Duration // budget for one run
	MaxConcurrency int
}

// Result summarizes one run
type Result struct {
	Refreshed int
	Failed    int
	Duration  time.Duration
}

// Job periodically refreshes a fixed symbol list from the backing source into the cache
type Job struct {
	cron    *cron.Cron
	source  quote.Source
	cache   QuoteWriter
	cfg     Config
	symbols []string

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewJob validates the symbol list and schedule
func NewJob(source quote.Source, cache QuoteWriter, cfg Config) (*Job, error) {
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, raw := range cfg.Symbols {
		sym, err := quote.NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil, quote.ErrSymbolsRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	j := &Job{
		cron:    cron.New(cron.WithSeconds()),
		source:  source,
		cache:   cache,
		cfg:     cfg,
		symbols: symbols,
	}
	if _, err := j.cron.AddFunc(cfg.Schedule, j.tick); err != nil {
		return nil, fmt.Errorf("register warm-up schedule %q: %w", cfg.Schedule, err)
	}
	return j, nil
}

// Start runs one warm-up immediately and then follows the schedule
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.mu.Unlock()

	j.tick()
	j.cron.Start()

	log.Info().
		Str("schedule", j.cfg.Schedule).
		Strs("symbols", j.symbols).
		Msg("Cache warm-up started")
}

// Stop halts the scheduler and waits for a running refresh
func (j *Job) Stop() {
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()

	<-j.cron.Stop().Done()
	log.Info().Msg("Cache warm-up stopped")
}

func (j *Job) tick() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		log.Debug().Msg("Warm-up still running, skipping tick")
		return
	}
	j.running = true
	ctx := j.ctx
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := j.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache warm-up finished with errors")
	}
}

// RunOnce refreshes every configured symbol once
func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		errs []error
		res  Result
	)

	g := new(errgroup.Group)
	g.SetLimit(j.cfg.MaxConcurrency)

	for _, sym := range j.symbols {
		g.Go(func() error {
			err := j.refresh(ctx, sym)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("%s: %w", sym, err))
				return nil
			}
			res.Refreshed++
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	log.Debug().
		Int("refreshed", res.Refreshed).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Cache warm-up run")

	return res, errors.Join(errs...)
}

func (j *Job) refresh(ctx context.Context, symbol string) error {
	q, err := j.source.Lookup(ctx, symbol)
	if err != nil {
		return err
	}
	return j.cache.Set(ctx, *q)
}
