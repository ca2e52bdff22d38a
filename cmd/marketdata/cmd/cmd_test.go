package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()
	return out.String(), err
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CACHE_ENABLED", "false")
}

func TestQuoteCmd_Memory(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "memory")

	out, err := runRoot(t, "quote", "aapl", "MSFT")
	require.NoError(t, err)

	var quotes []quote.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 2)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.Equal(t, "MSFT", quotes[1].Symbol)
	assert.Equal(t, "memory", quotes[0].Source)
}

func TestQuoteCmd_UnknownSymbol(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "memory")

	_, err := runRoot(t, "quote", "ZZZZ")
	assert.ErrorIs(t, err, quote.ErrQuoteNotFound)
}

func TestQuoteCmd_RequiresSymbol(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "memory")

	_, err := runRoot(t, "quote")
	assert.Error(t, err)
}

func TestMigrateCmd_SQLiteSeedThenQuote(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "quotes.db"))

	_, err := runRoot(t, "migrate", "--seed")
	require.NoError(t, err)

	// second run is a no-op on the schema
	_, err = runRoot(t, "migrate", "--driver", "sqlite")
	require.NoError(t, err)

	out, err := runRoot(t, "quote", "IBM")
	require.NoError(t, err)

	var quotes []quote.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, "IBM", quotes[0].Symbol)
	assert.Equal(t, "sqlite", quotes[0].Source)
}

func TestMigrateCmd_MemoryHasNoSchema(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "memory")

	_, err := runRoot(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema")
}

func TestRootCmd_UnknownSource(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "carrier-pigeon")

	_, err := runRoot(t, "quote", "AAPL")
	assert.Error(t, err)
}

func TestRootCmd_DefaultsToServe(t *testing.T) {
	quietEnv(t)
	t.Setenv("QUOTE_SOURCE", "memory")
	t.Setenv("PORT", "0")

	// already cancelled: the server starts, then shuts down gracefully
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetArgs([]string{})
	root.SetOut(&out)
	root.SetErr(&out)

	require.NoError(t, root.ExecuteContext(ctx))
	assert.NotContains(t, out.String(), "Usage:")
}

func TestRootCmd_RejectsStrayArgs(t *testing.T) {
	quietEnv(t)

	_, err := runRoot(t, "bogus")
	assert.Error(t, err)
}
