package quote

import "context"

// Source resolves a ticker into a quote.
// Implementations return ErrQuoteNotFound when the ticker has no data.
//
//go:generate mockgen -package=mock -destination=mock/mock_source.go -source=repository.go
type Source interface {
	// Name identifies the backend (reported in Quote.Source and health output)
	Name() string

	// Lookup returns the current quote for symbol
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// Repository is a Source backed by persistent storage
type Repository interface {
	Source

	// Upsert inserts or replaces the quote for q.Symbol
	Upsert(ctx context.Context, q Quote) error

	// List returns quotes ordered by symbol
	List(ctx context.Context, offset, limit int) ([]Quote, error)

	// Count returns the number of stored quotes
	Count(ctx context.Context) (int, error)
}
