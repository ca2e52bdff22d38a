package quote

import "errors"

// Domain errors
var (
	// Validation errors
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrSymbolsRequired = errors.New("symbols parameter is required")
	ErrTooManySymbols  = errors.New("too many symbols")
	ErrNegativePrice   = errors.New("invalid price: must not be negative")
	ErrNegativeVolume  = errors.New("invalid volume: must not be negative")

	// Data errors
	ErrQuoteNotFound = errors.New("quote not found")

	// Upstream errors
	ErrUpstream        = errors.New("quote source failure")
	ErrUpstreamTimeout = errors.New("quote source timed out")

	// Repository errors
	ErrDatabaseQuery  = errors.New("database query failed")
	ErrDatabaseInsert = errors.New("database insert failed")
)

// IsValidation reports whether err should be surfaced as a client error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSymbol) ||
		errors.Is(err, ErrSymbolsRequired) ||
		errors.Is(err, ErrTooManySymbols)
}
