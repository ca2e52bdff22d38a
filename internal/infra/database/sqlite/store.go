package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// SourceName is reported in Quote.Source
const SourceName = "sqlite"

// QuoteStore implements quote.Repository on an embedded SQLite file
type QuoteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes writers
}

// Open opens (or creates) the database at path and runs migrations
func Open(path string) (*QuoteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers proceed while the warm-up or migrate command writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &QuoteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", path).Msg("SQLite quote store opened")
	return s, nil
}

func (s *QuoteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			symbol     TEXT    PRIMARY KEY,
			price      TEXT    NOT NULL,
			volume     INTEGER NOT NULL DEFAULT 0 CHECK (volume >= 0),
			currency   TEXT    NOT NULL DEFAULT 'USD',
			updated_ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_updated_ts ON quotes(updated_ts)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// Name implements quote.Source
func (s *QuoteStore) Name() string { return SourceName }

// Lookup returns the stored quote for symbol
func (s *QuoteStore) Lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, price, volume, currency, updated_ts FROM quotes WHERE symbol = ?`,
		symbol,
	)

	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, quote.ErrQuoteNotFound
		}
		return nil, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}
	return q, nil
}

// Upsert inserts or replaces a quote
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

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO quotes (symbol, price, volume, currency, updated_ts)
		VALUES (?,?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			volume = excluded.volume,
			currency = excluded.currency,
			updated_ts = excluded.updated_ts`,
		q.Symbol, q.Price.String(), q.Volume, q.Currency, q.AsOf.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", quote.ErrDatabaseInsert, err)
	}
	return nil
}

// List returns quotes ordered by symbol; limit <= 0 means no limit
func (s *QuoteStore) List(ctx context.Context, offset, limit int) ([]quote.Quote, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, price, volume, currency, updated_ts FROM quotes ORDER BY symbol LIMIT ? OFFSET ?`,
		limit, offset,
	)
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
func (s *QuoteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", quote.ErrDatabaseQuery, err)
	}
	return n, nil
}

// Check pings the database for readiness probes
func (s *QuoteStore) Check(ctx context.Context) (map[string]interface{}, error) {
	start := time.Now()
	err := s.db.PingContext(ctx)
	details := map[string]interface{}{
		"response_time": time.Since(start).String(),
		"open_conns":    s.db.Stats().OpenConnections,
	}
	return details, err
}

// Close closes the database
func (s *QuoteStore) Close() error {
	log.Info().Msg("Closing SQLite quote store...")
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (*quote.Quote, error) {
	var (
		q     quote.Quote
		price string
		ts    int64
	)
	if err := row.Scan(&q.Symbol, &price, &q.Volume, &q.Currency, &ts); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	q.Price = d
	q.AsOf = time.UnixMilli(ts).UTC()
	q.Source = SourceName

	return &q, nil
}
