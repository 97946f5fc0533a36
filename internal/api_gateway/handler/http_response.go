package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/middleware"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Error codes returned next to the HTTP status
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeOpenTrips    = "OPEN_TRIPS"
	CodeShiftClosed  = "SHIFT_CLOSED"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
	internalErrorMsg = "An internal server error occurred"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, CodeBadRequest, message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, CodeNotFound, message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, CodeInternal, internalErrorMsg)
}

// RespondDomainError maps the settlement error taxonomy onto a status and code.
// Anything unrecognised is logged and hidden behind a 500.
func RespondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var validation shared.ValidationError
	var gating shared.GatingError

	switch {
	case errors.As(err, &validation):
		RespondBadRequest(c, validation.Error())
	case errors.As(err, &gating):
		RespondWithError(c, http.StatusConflict, CodeOpenTrips, gating.Error())
	case errors.Is(err, shared.ErrShiftClosed):
		RespondWithError(c, http.StatusConflict, CodeShiftClosed, err.Error())
	case errors.Is(err, settings.ErrSnapshotInUse{}):
		RespondWithError(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, closure.ErrNotFound{}),
		errors.Is(err, report.ErrNotFound{}),
		errors.Is(err, settings.ErrSnapshotNotFound{}):
		RespondNotFound(c, err.Error())
	default:
		logger.Error("Request failed", "path", c.FullPath(), "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
	}
}
