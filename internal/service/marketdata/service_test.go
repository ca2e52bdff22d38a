package marketdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
	"github.com/MichalDSW/investment-platform/internal/domain/quote/mock"
)

func quoteFor(symbol string) *quote.Quote {
	return &quote.Quote{
		Symbol:   symbol,
		Price:    decimal.NewFromInt(100),
		Volume:   10,
		Currency: quote.DefaultCurrency,
		Source:   "mock",
		AsOf:     time.Now(),
	}
}

func lookupEcho(_ context.Context, symbol string) (*quote.Quote, error) {
	return quoteFor(symbol), nil
}

func TestService_GetQuote(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	src.EXPECT().Lookup(gomock.Any(), "AAPL").DoAndReturn(lookupEcho)

	svc := NewService(src, DefaultConfig())
	q, err := svc.GetQuote(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
}

func TestService_GetQuote_InvalidSymbolSkipsLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl) // no expectations: any lookup fails the test

	svc := NewService(src, DefaultConfig())
	for _, sym := range []string{"", "INVALID123", "TOOLONG", "A-B"} {
		_, err := svc.GetQuote(context.Background(), sym)
		assert.ErrorIs(t, err, quote.ErrInvalidSymbol, sym)
		assert.True(t, quote.IsValidation(err))
	}
}

func TestService_GetQuote_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"not found", quote.ErrQuoteNotFound, quote.ErrQuoteNotFound},
		{"upstream", errors.New("connection reset"), quote.ErrUpstream},
		{"wrapped upstream", quote.ErrUpstream, quote.ErrUpstream},
		{"source timeout", quote.ErrUpstreamTimeout, quote.ErrUpstreamTimeout},
		{"deadline", context.DeadlineExceeded, quote.ErrUpstreamTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			src := mock.NewMockSource(ctrl)
			src.EXPECT().Lookup(gomock.Any(), "MSFT").Return(nil, tt.err)
			src.EXPECT().Name().Return("mock").AnyTimes()

			_, err := NewService(src, DefaultConfig()).GetQuote(context.Background(), "MSFT")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, quote.IsValidation(err))
		})
	}
}

func TestService_GetQuote_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	src.EXPECT().Lookup(gomock.Any(), "AAPL").DoAndReturn(func(ctx context.Context, _ string) (*quote.Quote, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	svc := NewService(src, Config{UpstreamTimeout: 20 * time.Millisecond, MaxConcurrency: 1})

	start := time.Now()
	_, err := svc.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, quote.ErrUpstreamTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_GetQuote_CoalescesConcurrentLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	src.EXPECT().Lookup(gomock.Any(), "NVDA").DoAndReturn(func(ctx context.Context, symbol string) (*quote.Quote, error) {
		close(started)
		<-release
		return quoteFor(symbol), nil
	}).Times(1)

	svc := NewService(src, DefaultConfig())

	var wg sync.WaitGroup
	results := make([]*quote.Quote, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := svc.GetQuote(context.Background(), "NVDA")
			assert.NoError(t, err)
			results[i] = q
		}()
		if i == 0 {
			<-started
		}
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	// callers get independent copies
	assert.NotSame(t, results[0], results[1])
}

func TestService_GetQuotes_PreservesOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)

	delays := map[string]time.Duration{"AAPL": 30 * time.Millisecond, "GOOGL": 0, "MSFT": 10 * time.Millisecond}
	src.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, symbol string) (*quote.Quote, error) {
		time.Sleep(delays[symbol])
		return quoteFor(symbol), nil
	}).Times(3)

	batch, err := NewService(src, DefaultConfig()).GetQuotes(context.Background(), []string{"AAPL", "GOOGL", "MSFT"}, 0, 0)
	require.NoError(t, err)

	require.Len(t, batch.Quotes, 3)
	assert.Equal(t, "AAPL", batch.Quotes[0].Symbol)
	assert.Equal(t, "GOOGL", batch.Quotes[1].Symbol)
	assert.Equal(t, "MSFT", batch.Quotes[2].Symbol)
	assert.Equal(t, 1, batch.Page)
	assert.Equal(t, 3, batch.Limit)
	assert.Equal(t, 3, batch.Total)
}

func TestService_GetQuotes_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	src.EXPECT().Lookup(gomock.Any(), "MSFT").DoAndReturn(lookupEcho).Times(1)

	svc := NewService(src, DefaultConfig())

	batch, err := svc.GetQuotes(context.Background(), []string{"AAPL", "GOOGL", "MSFT"}, 2, 2)
	require.NoError(t, err)
	require.Len(t, batch.Quotes, 1)
	assert.Equal(t, "MSFT", batch.Quotes[0].Symbol)
	assert.Equal(t, 3, batch.Total)

	// past the last page: no lookups, empty data
	batch, err = svc.GetQuotes(context.Background(), []string{"AAPL"}, 5, 1)
	require.NoError(t, err)
	assert.Empty(t, batch.Quotes)
}

func TestService_GetQuotes_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	svc := NewService(src, DefaultConfig())
	ctx := context.Background()

	_, err := svc.GetQuotes(ctx, nil, 1, 10)
	assert.ErrorIs(t, err, quote.ErrSymbolsRequired)

	_, err = svc.GetQuotes(ctx, []string{"AAPL", "BAD1"}, 1, 10)
	assert.ErrorIs(t, err, quote.ErrInvalidSymbol)

	many := make([]string, quote.MaxSymbols+1)
	for i := range many {
		many[i] = "AAPL"
	}
	_, err = svc.GetQuotes(ctx, many, 1, 10)
	assert.ErrorIs(t, err, quote.ErrTooManySymbols)
}

func TestService_GetQuotes_NotFoundFailsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	src.EXPECT().Lookup(gomock.Any(), "AAPL").DoAndReturn(lookupEcho).AnyTimes()
	src.EXPECT().Lookup(gomock.Any(), "ZZZZ").Return(nil, quote.ErrQuoteNotFound)

	_, err := NewService(src, DefaultConfig()).GetQuotes(context.Background(), []string{"AAPL", "ZZZZ"}, 1, 0)
	require.ErrorIs(t, err, quote.ErrQuoteNotFound)
	assert.Contains(t, err.Error(), "ZZZZ")
}

func TestService_GetQuotes_BoundedConcurrency(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)

	var inFlight, peak atomic.Int32
	src.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, symbol string) (*quote.Quote, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return quoteFor(symbol), nil
	}).Times(6)

	svc := NewService(src, Config{UpstreamTimeout: time.Second, MaxConcurrency: 2})
	batch, err := svc.GetQuotes(context.Background(), []string{"A", "B", "C", "D", "E", "F"}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, batch.Quotes, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestService_GetQuotes_FailureStopsFanOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)

	symbols := make([]string, 32)
	for i := range symbols {
		symbols[i] = string(rune('A'+i/26)) + string(rune('A'+i%26))
	}

	var calls, inFlight, peak atomic.Int32
	src.EXPECT().Lookup(gomock.Any(), symbols[0]).DoAndReturn(func(context.Context, string) (*quote.Quote, error) {
		calls.Add(1)
		return nil, quote.ErrQuoteNotFound
	})
	src.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, symbol string) (*quote.Quote, error) {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		return quoteFor(symbol), nil
	}).AnyTimes()

	svc := NewService(src, Config{UpstreamTimeout: time.Second, MaxConcurrency: 2})
	_, err := svc.GetQuotes(context.Background(), symbols, 1, 0)
	require.ErrorIs(t, err, quote.ErrQuoteNotFound)

	// detached lookups still finish in the background
	require.Eventually(t, func() bool { return inFlight.Load() == 0 }, time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, calls.Load(), int32(2))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestService_GetQuotes_ExpiredContextSkipsLookups(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mock.NewMockSource(ctrl)
	src.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(src, DefaultConfig()).GetQuotes(ctx, []string{"AAPL", "MSFT", "IBM"}, 1, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, Config{})
	assert.Equal(t, DefaultConfig(), svc.cfg)
}
