package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MichalDSW/investment-platform/internal/api/middleware"
	"github.com/MichalDSW/investment-platform/internal/domain/quote"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes
const (
	// General errors
	ErrCodeInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// External API errors
	ErrCodeExternalAPIError   = "EXTERNAL_API_ERROR"
	ErrCodeExternalAPITimeout = "EXTERNAL_API_TIMEOUT"
)

// Error sends an error response
func Error(c *gin.Context, statusCode int, code, message string) {
	ErrorWithDetails(c, statusCode, code, message, "")
}

// ErrorWithDetails sends an error response with additional details
func ErrorWithDetails(c *gin.Context, statusCode int, code, message, details string) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetRequestID(c),
			Timestamp: time.Now(),
		},
	}

	// client errors are expected traffic
	var event *zerolog.Event
	if statusCode >= 500 {
		event = log.Error()
	} else {
		event = log.Warn()
	}
	event.
		Str("request_id", resp.Error.RequestID).
		Str("error_code", code).
		Str("message", message).
		Str("details", details).
		Int("status", statusCode).
		Msg("API error response")

	c.AbortWithStatusJSON(statusCode, resp)
}

// BadRequest sends a 400 Bad Request error
func BadRequest(c *gin.Context, message, details string) {
	ErrorWithDetails(c, http.StatusBadRequest, ErrCodeInvalidParameter, message, details)
}

// ValidationFailed sends a 400 for a request whose input failed domain validation
func ValidationFailed(c *gin.Context, err error) {
	ErrorWithDetails(c, http.StatusBadRequest, ErrCodeValidation, "Request validation failed", err.Error())
}

// NotFound sends a 404 Not Found error
func NotFound(c *gin.Context, message, details string) {
	ErrorWithDetails(c, http.StatusNotFound, ErrCodeNotFound, message, details)
}

// InternalError sends a 500 Internal Server Error
func InternalError(c *gin.Context, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	ErrorWithDetails(c, http.StatusInternalServerError, ErrCodeInternalServer, "An unexpected error occurred", details)
}

// ExternalAPIError sends a 502 for a failing quote source
func ExternalAPIError(c *gin.Context, serviceName string, err error) {
	message := "External service error"
	if serviceName != "" {
		message = serviceName + " service error"
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	ErrorWithDetails(c, http.StatusBadGateway, ErrCodeExternalAPIError, message, details)
}

// ExternalAPITimeout sends a 504 when the quote source did not answer in time
func ExternalAPITimeout(c *gin.Context, serviceName string, err error) {
	message := "External service timed out"
	if serviceName != "" {
		message = serviceName + " service timed out"
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	ErrorWithDetails(c, http.StatusGatewayTimeout, ErrCodeExternalAPITimeout, message, details)
}

// RateLimitExceeded sends a rate limit exceeded error
func RateLimitExceeded(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

// QuoteError maps a quote lookup failure onto the error envelope
func QuoteError(c *gin.Context, source string, err error) {
	switch {
	case quote.IsValidation(err):
		ValidationFailed(c, err)
	case errors.Is(err, quote.ErrQuoteNotFound):
		NotFound(c, "Quote not found", err.Error())
	case errors.Is(err, quote.ErrUpstreamTimeout):
		ExternalAPITimeout(c, source, err)
	case errors.Is(err, quote.ErrUpstream):
		ExternalAPIError(c, source, err)
	default:
		InternalError(c, err)
	}
}
