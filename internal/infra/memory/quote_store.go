package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// SourceName is reported in Quote.Source
const SourceName = "memory"

// QuoteStore is an in-process quote.Repository
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]quote.Quote
}

// NewQuoteStore creates an empty store
func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]quote.Quote)}
}

// NewSeededQuoteStore creates a store preloaded with DefaultQuotes
func NewSeededQuoteStore() *QuoteStore {
	s := NewQuoteStore()
	for _, q := range DefaultQuotes(time.Now()) {
		s.quotes[q.Symbol] = q
	}
	return s
}

// Name implements quote.Source
func (s *QuoteStore) Name() string { return SourceName }

// Lookup implements quote.Source
func (s *QuoteStore) Lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	if !ok {
		return nil, quote.ErrQuoteNotFound
	}
	return &q, nil
}

// Upsert implements quote.Repository
func (s *QuoteStore) Upsert(ctx context.Context, q quote.Quote) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.Currency == "" {
		q.Currency = quote.DefaultCurrency
	}
	if q.AsOf.IsZero() {
		q.AsOf = time.Now()
	}
	q.Source = SourceName

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[q.Symbol] = q
	return nil
}

// List implements quote.Repository
func (s *QuoteStore) List(ctx context.Context, offset, limit int) ([]quote.Quote, error) {
	s.mu.RLock()
	out := make([]quote.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	if offset >= len(out) {
		return []quote.Quote{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// Count implements quote.Repository
func (s *QuoteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes), nil
}

// Check reports the store size for readiness probes
func (s *QuoteStore) Check(ctx context.Context) (map[string]interface{}, error) {
	n, err := s.Count(ctx)
	return map[string]interface{}{"quotes": n}, err
}

// DefaultQuotes returns the seed data used by the memory source and `migrate --seed`
func DefaultQuotes(asOf time.Time) []quote.Quote {
	seed := []struct {
		symbol string
		price  string
		volume int64
	}{
		{"AAPL", "189.84", 52164500},
		{"GOOGL", "141.80", 23456100},
		{"MSFT", "415.50", 19876300},
		{"AMZN", "178.25", 38765400},
		{"META", "505.95", 14532100},
		{"NVDA", "875.28", 41234500},
		{"TSLA", "175.79", 87654300},
		{"IBM", "191.15", 4321900},
		{"ORCL", "127.54", 8765400},
		{"NFLX", "628.60", 3210900},
	}

	out := make([]quote.Quote, 0, len(seed))
	for _, s := range seed {
		out = append(out, quote.Quote{
			Symbol:   s.symbol,
			Price:    decimal.RequireFromString(s.price),
			Volume:   s.volume,
			Currency: quote.DefaultCurrency,
			Source:   SourceName,
			AsOf:     asOf,
		})
	}
	return out
}
