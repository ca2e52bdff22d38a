package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MichalDSW/investment-platform/internal/api/middleware"
)

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Meta       Meta        `json:"meta"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	TotalCount int  `json:"total_count"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Meta represents metadata in response
type Meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Count     int       `json:"count,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: newMeta(c),
	})
}

// SuccessWithPagination sends a list with pagination; source names the quote backend
func SuccessWithPagination(c *gin.Context, data interface{}, count int, pagination *Pagination, source string) {
	meta := newMeta(c)
	meta.Count = count
	meta.Source = source

	c.JSON(http.StatusOK, SuccessResponse{
		Data:       data,
		Pagination: pagination,
		Meta:       meta,
	})
}

func newMeta(c *gin.Context) Meta {
	return Meta{
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now(),
	}
}

// NewPagination creates a new Pagination object
func NewPagination(page, limit, totalCount int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	totalPages := (totalCount + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		TotalCount: totalCount,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
