package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
	"github.com/MichalDSW/investment-platform/internal/service/marketdata"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubQuoteService struct {
	err       error
	gotPage   int
	gotLimit  int
	gotSymbol []string
}

func (s *stubQuoteService) GetQuote(_ context.Context, symbol string) (*quote.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &quote.Quote{Symbol: symbol, Price: decimal.RequireFromString("1.50"), Currency: "USD", Source: "stub", AsOf: time.Now()}, nil
}

func (s *stubQuoteService) GetQuotes(_ context.Context, symbols []string, page, limit int) (*marketdata.Batch, error) {
	s.gotSymbol, s.gotPage, s.gotLimit = symbols, page, limit
	if s.err != nil {
		return nil, s.err
	}
	out := make([]quote.Quote, len(symbols))
	for i, sym := range symbols {
		out[i] = quote.Quote{Symbol: sym, Price: decimal.NewFromInt(1)}
	}
	return &marketdata.Batch{Quotes: out, Page: 1, Limit: len(symbols), Total: len(symbols)}, nil
}

func (s *stubQuoteService) SourceName() string { return "stub" }

func newQuoteRouter(svc QuoteService) *gin.Engine {
	h := NewQuoteHandler(svc)
	r := gin.New()
	r.GET("/stocks", h.GetQuotes)
	r.GET("/stocks/:symbol", h.GetQuote)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestQuoteHandler_GetQuote_Unwrapped(t *testing.T) {
	w := get(newQuoteRouter(&stubQuoteService{}), "/stocks/AAPL")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, 1.5, body["price"])
	assert.NotContains(t, body, "data")
}

func TestQuoteHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: %q", quote.ErrInvalidSymbol, "INVALID123"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: ZZZZ", quote.ErrQuoteNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: AAPL", quote.ErrUpstreamTimeout), http.StatusGatewayTimeout, "EXTERNAL_API_TIMEOUT"},
		{fmt.Errorf("%w: 503", quote.ErrUpstream), http.StatusBadGateway, "EXTERNAL_API_ERROR"},
		{errors.New("unexpected"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := get(newQuoteRouter(&stubQuoteService{err: tt.err}), "/stocks/AAPL")
			assert.Equal(t, tt.status, w.Code)

			var body map[string]map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"]["code"])
			assert.NotEmpty(t, body["error"]["message"])
		})
	}
}

func TestQuoteHandler_GetQuotes(t *testing.T) {
	svc := &stubQuoteService{}
	w := get(newQuoteRouter(svc), "/stocks?symbols=aapl,%20GOOGL,MSFT&page=1&limit=3")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"AAPL", "GOOGL", "MSFT"}, svc.gotSymbol)
	assert.Equal(t, 1, svc.gotPage)
	assert.Equal(t, 3, svc.gotLimit)

	var body struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination map[string]interface{}   `json:"pagination"`
		Meta       map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 3)
	assert.EqualValues(t, 3, body.Pagination["total_count"])
	assert.Equal(t, "stub", body.Meta["source"])
}

func TestQuoteHandler_GetQuotes_BadInput(t *testing.T) {
	r := newQuoteRouter(&stubQuoteService{})

	tests := []struct {
		path string
		code string
	}{
		{"/stocks", "INVALID_PARAMETER"},
		{"/stocks?symbols=", "VALIDATION_ERROR"},
		{"/stocks?symbols=AAPL,INVALID123", "VALIDATION_ERROR"},
		{"/stocks?symbols=AAPL&page=0", "INVALID_PARAMETER"},
		{"/stocks?symbols=AAPL&limit=abc", "INVALID_PARAMETER"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"]["code"])
		})
	}
}
