package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

const keyPrefix = "quote:"

// QuoteCache is a cache-aside quote.Source in front of another Source.
// Redis failures never fail a lookup; they are logged and the backing source answers.
type QuoteCache struct {
	client  goredis.UniversalClient
	backing quote.Source
	ttl     time.Duration
}

// NewQuoteCache wraps backing with a Redis cache
func NewQuoteCache(client goredis.UniversalClient, backing quote.Source, ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
	}
}

// Name reports the backing source; cached quotes keep their original Source field
func (c *QuoteCache) Name() string { return c.backing.Name() }

// Backing returns the decorated source
func (c *QuoteCache) Backing() quote.Source { return c.backing }

// Lookup implements quote.Source
func (c *QuoteCache) Lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	if q, ok := c.get(ctx, symbol); ok {
		return q, nil
	}

	q, err := c.backing.Lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, *q); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
	}
	return q, nil
}

func (c *QuoteCache) get(ctx context.Context, symbol string) (*quote.Quote, bool) {
	raw, err := c.client.Get(ctx, Key(symbol)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Redis read failed, falling through")
		}
		return nil, false
	}

	var q quote.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return &q, true
}

// Set stores q under its symbol with the configured TTL
func (c *QuoteCache) Set(ctx context.Context, q quote.Quote) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	return c.client.Set(ctx, Key(q.Symbol), raw, c.ttl).Err()
}

// Invalidate drops cached entries for symbols
func (c *QuoteCache) Invalidate(ctx context.Context, symbols ...string) error {
	if len(symbols) == 0 {
		return nil
	}
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = Key(s)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Check pings Redis for readiness probes
func (c *QuoteCache) Check(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	err := c.client.Ping(ctx).Err()
	return map[string]interface{}{
		"response_time": time.Since(start).String(),
		"ttl":           c.ttl.String(),
	}, err
}

// Key returns the Redis key for symbol
func Key(symbol string) string {
	return keyPrefix + symbol
}
