package quote

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain ticker", input: "AAPL", want: "AAPL"},
		{name: "five letters", input: "GOOGL", want: "GOOGL"},
		{name: "single letter", input: "F", want: "F"},
		{name: "lowercase is normalized", input: "msft", want: "MSFT"},
		{name: "surrounding spaces trimmed", input: "  IBM ", want: "IBM"},
		{name: "mixed alphanumeric rejected", input: "INVALID123", wantErr: true},
		{name: "too long", input: "ABCDEF", wantErr: true},
		{name: "digits only", input: "123", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "punctuation", input: "BRK.B", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSymbol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSymbols(t *testing.T) {
	t.Run("preserves order and duplicates", func(t *testing.T) {
		got, err := ParseSymbols("AAPL, googl,MSFT,AAPL")
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT", "AAPL"}, got)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := ParseSymbols("   ")
		assert.ErrorIs(t, err, ErrSymbolsRequired)
	})

	t.Run("empty element", func(t *testing.T) {
		_, err := ParseSymbols("AAPL,,MSFT")
		assert.ErrorIs(t, err, ErrInvalidSymbol)
	})

	t.Run("invalid element names the symbol", func(t *testing.T) {
		_, err := ParseSymbols("AAPL,INVALID123")
		require.ErrorIs(t, err, ErrInvalidSymbol)
		assert.Contains(t, err.Error(), "INVALID123")
	})

	t.Run("too many symbols", func(t *testing.T) {
		raw := "A"
		for i := 0; i < MaxSymbols; i++ {
			raw += ",A"
		}
		_, err := ParseSymbols(raw)
		assert.ErrorIs(t, err, ErrTooManySymbols)
	})
}

func TestQuoteValidate(t *testing.T) {
	valid := Quote{Symbol: "AAPL", Price: decimal.RequireFromString("189.84"), Volume: 1000}
	assert.NoError(t, valid.Validate())

	zero := Quote{Symbol: "AAPL"}
	assert.NoError(t, zero.Validate(), "zero price and volume are allowed")

	negPrice := valid
	negPrice.Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negPrice.Validate(), ErrNegativePrice)

	negVolume := valid
	negVolume.Volume = -5
	assert.ErrorIs(t, negVolume.Validate(), ErrNegativeVolume)

	badSymbol := valid
	badSymbol.Symbol = "aapl"
	assert.ErrorIs(t, badSymbol.Validate(), ErrInvalidSymbol)
}

func TestQuote_JSONPriceIsExactNumber(t *testing.T) {
	q := Quote{
		Symbol:   "BRK",
		Price:    decimal.RequireFromString("612345.123456789012"),
		Volume:   3,
		Currency: DefaultCurrency,
		Source:   "memory",
		AsOf:     time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":612345.123456789012`)
	assert.Contains(t, string(data), `"symbol":"BRK"`)
	assert.Contains(t, string(data), `"as_of":"2024-03-01T16:00:00Z"`)

	var back Quote
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, q.Price.Equal(back.Price))
	assert.Equal(t, q.Symbol, back.Symbol)

	// entries written with a quoted price still decode
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"IBM","price":"191.15"}`), &back))
	assert.Equal(t, "191.15", back.Price.String())
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrSymbolsRequired))
	assert.True(t, IsValidation(errors.Join(errors.New("ctx"), ErrInvalidSymbol)))
	assert.False(t, IsValidation(ErrQuoteNotFound))
	assert.False(t, IsValidation(ErrUpstream))
}
