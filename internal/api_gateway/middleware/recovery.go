package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

type panicBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Recovery builds on gin's recovery so broken client connections are still
// detected, but reports panics through slog and the API error envelope.
// The stack only goes to the log.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		id := GetCorrelationID(c)
		logger.Error("Panic recovered",
			"error", recovered,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"business_day", businessDayOf(c),
			"correlation_id", id,
			"stack", string(debug.Stack()),
		)

		var body panicBody
		body.Error.Code = "INTERNAL_SERVER_ERROR"
		body.Error.Message = "An internal server error occurred"
		body.CorrelationID = id
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

func businessDayOf(c *gin.Context) string {
	if day := c.Param("day"); day != "" {
		return day
	}
	return c.Query("day")
}
