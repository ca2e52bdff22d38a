package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

const (
	// SourceName is reported in Quote.Source
	SourceName = "alphavantage"

	defaultBaseURL = "https://www.alphavantage.co/query"
	defaultTimeout = 10 * time.Second
	function       = "GLOBAL_QUOTE"
	tradingDay     = "2006-01-02"
)

// HTTPClient is the subset of *http.Client the client needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an Alpha Vantage quote.Source
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements quote.Source
func (c *Client) Name() string { return SourceName }

type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

// Lookup fetches the latest GLOBAL_QUOTE for symbol
func (c *Client) Lookup(ctx context.Context, symbol string) (*quote.Quote, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", quote.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", quote.ErrUpstream, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("symbol", symbol).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Alpha Vantage request")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: alpha vantage status %d: %s", quote.ErrUpstream, resp.StatusCode, body)
	}

	var payload globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", quote.ErrUpstream, err)
	}

	switch {
	case payload.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s", quote.ErrUpstream, payload.ErrorMessage)
	case payload.Note != "":
		return nil, fmt.Errorf("%w: %s", quote.ErrUpstream, payload.Note)
	case payload.Information != "":
		return nil, fmt.Errorf("%w: %s", quote.ErrUpstream, payload.Information)
	case len(payload.GlobalQuote) == 0:
		return nil, quote.ErrQuoteNotFound
	}

	return parseGlobalQuote(symbol, payload.GlobalQuote)
}

func parseGlobalQuote(symbol string, fields map[string]string) (*quote.Quote, error) {
	price, err := decimal.NewFromString(fields["05. price"])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q", quote.ErrUpstream, fields["05. price"])
	}

	var volume int64
	if v := fields["06. volume"]; v != "" {
		volume, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid volume %q", quote.ErrUpstream, v)
		}
	}

	asOf := time.Now().UTC()
	if day, err := time.Parse(tradingDay, fields["07. latest trading day"]); err == nil {
		asOf = day
	}

	if s := fields["01. symbol"]; s != "" {
		symbol = s
	}

	q := &quote.Quote{
		Symbol:   symbol,
		Price:    price,
		Volume:   volume,
		Currency: quote.DefaultCurrency,
		Source:   SourceName,
		AsOf:     asOf,
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", quote.ErrUpstream, err)
	}
	return q, nil
}
