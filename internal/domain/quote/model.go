package quote

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxSymbols is the largest number of tickers accepted in one batch request
const MaxSymbols = 100

// DefaultCurrency is used when a source does not report one
const DefaultCurrency = "USD"

// symbolPattern: 1-5 ASCII uppercase letters (AAPL, GOOGL, F)
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Quote represents a price/volume snapshot for a ticker
// Maps to market.quotes table
type Quote struct {
	Symbol   string          `json:"symbol" db:"symbol"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Volume   int64           `json:"volume" db:"volume"` // shares traded
	Currency string          `json:"currency" db:"currency"`
	Source   string          `json:"source" db:"source"` // backend that produced the quote
	AsOf     time.Time       `json:"as_of" db:"updated_ts"`
}

// MarshalJSON writes price as a JSON number carrying the exact decimal digits.
// decimal.Decimal decodes both numbers and quoted strings, so Unmarshal needs no counterpart.
func (q Quote) MarshalJSON() ([]byte, error) {
	type plain Quote
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(q), json.Number(q.Price.String())})
}

// Validate checks the quote invariants
func (q Quote) Validate() error {
	if !ValidateSymbol(q.Symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, q.Symbol)
	}
	if q.Price.IsNegative() {
		return ErrNegativePrice
	}
	if q.Volume < 0 {
		return ErrNegativeVolume
	}
	return nil
}

// ValidateSymbol reports whether symbol is a well-formed ticker.
// The input must already be normalized (trimmed, upper-cased).
func ValidateSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// NormalizeSymbol trims and upper-cases raw, then validates the result
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !ValidateSymbol(symbol) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return symbol, nil
}

// ParseSymbols parses a comma-separated ticker list.
// Order and duplicates are preserved so the response lines up with the request.
func ParseSymbols(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrSymbolsRequired
	}

	parts := strings.Split(raw, ",")
	if len(parts) > MaxSymbols {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManySymbols, len(parts), MaxSymbols)
	}

	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol, err := NormalizeSymbol(part)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}

	return symbols, nil
}

// Clone returns a copy safe to hand out from shared stores
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	c := *q
	return &c
}
