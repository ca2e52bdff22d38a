package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// SourceName is reported in Quote.Source
const SourceName = "postgres"

// QuoteRepository implements quote.Repository using PostgreSQL
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository creates a new QuoteRepository
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

// Name implements quote.Source
func (r *QuoteRepository) Name() string { return SourceName }

// Lookup returns the stored quote for symbol
func (r *QuoteRepository) Lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	query := `
		SELECT symbol, price::text, volume, currency, updated_ts
		FROM market.quotes
		WHERE symbol = $1
	`

	q, err := scanQuote(r.pool.QueryRow(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quote.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}

	return q, nil
}

// Upsert inserts or replaces a quote
func (r *QuoteRepository) Upsert(ctx context.Context, q quote.Quote) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.Currency == "" {
		q.Currency = quote.DefaultCurrency
	}
	if q.AsOf.IsZero() {
		q.AsOf = time.Now()
	}

	query := `
		INSERT INTO market.quotes (symbol, price, volume, currency, updated_ts)
		VALUES ($1, $2::numeric, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			price = EXCLUDED.price,
			volume = EXCLUDED.volume,
			currency = EXCLUDED.currency,
			updated_ts = EXCLUDED.updated_ts
	`

	_, err := r.pool.Exec(ctx, query,
		q.Symbol,
		q.Price.String(),
		q.Volume,
		q.Currency,
		q.AsOf,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", quote.ErrDatabaseInsert, err)
	}

	return nil
}

// List returns quotes ordered by symbol
func (r *QuoteRepository) List(ctx context.Context, offset, limit int) ([]quote.Quote, error) {
	query := `
		SELECT symbol, price::text, volume, currency, updated_ts
		FROM market.quotes
		ORDER BY symbol
		OFFSET $1
		LIMIT $2
	`

	var bound any
	if limit > 0 {
		bound = limit
	}

	rows, err := r.pool.Query(ctx, query, offset, bound)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	quotes := []quote.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}

	return quotes, nil
}

// Count returns the number of stored quotes
func (r *QuoteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM market.quotes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}
	return n, nil
}

func scanQuote(row pgx.Row) (*quote.Quote, error) {
	var (
		q     quote.Quote
		price string
	)
	if err := row.Scan(&q.Symbol, &price, &q.Volume, &q.Currency, &q.AsOf); err != nil {
		return nil, err
	}

	// NUMERIC is read as text to keep full precision
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	q.Price = d
	q.Source = SourceName

	return &q, nil
}
