package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MichalDSW/investment-platform/internal/api/response"
	"github.com/MichalDSW/investment-platform/internal/domain/quote"
	"github.com/MichalDSW/investment-platform/internal/service/marketdata"
)

// QuoteService is the query service used by QuoteHandler
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) (*quote.Quote, error)
	GetQuotes(ctx context.Context, symbols []string, page, limit int) (*marketdata.Batch, error)
	SourceName() string
}

// QuoteHandler handles stock quote requests
type QuoteHandler struct {
	svc QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(svc QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// GetQuote handles GET /api/v1/markets/stocks/:symbol
// The quote object is returned as-is, without the data envelope.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	q, err := h.svc.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		response.QuoteError(c, h.svc.SourceName(), err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// GetQuotes handles GET /api/v1/markets/stocks?symbols=A,B,C[&page=&limit=]
func (h *QuoteHandler) GetQuotes(c *gin.Context) {
	raw, ok := c.GetQuery("symbols")
	if !ok {
		response.BadRequest(c, "Missing required parameter", "symbols query parameter is required, e.g. ?symbols=AAPL,MSFT")
		return
	}

	symbols, err := quote.ParseSymbols(raw)
	if err != nil {
		response.ValidationFailed(c, err)
		return
	}

	page, err := optionalPositiveInt(c, "page")
	if err != nil {
		response.BadRequest(c, "Invalid page value", err.Error())
		return
	}
	limit, err := optionalPositiveInt(c, "limit")
	if err != nil {
		response.BadRequest(c, "Invalid limit value", err.Error())
		return
	}

	batch, err := h.svc.GetQuotes(c.Request.Context(), symbols, page, limit)
	if err != nil {
		response.QuoteError(c, h.svc.SourceName(), err)
		return
	}

	pagination := response.NewPagination(batch.Page, batch.Limit, batch.Total)
	response.SuccessWithPagination(c, batch.Quotes, len(batch.Quotes), pagination, h.svc.SourceName())
}

// optionalPositiveInt returns 0 when the parameter is absent
func optionalPositiveInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
