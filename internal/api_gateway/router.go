package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/handler"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	shiftHandler *handler.ShiftHandler,
	settingsHandler *handler.SettingsHandler,
	metricsHandler http.Handler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		shifts := v1.Group("/shifts/:day")
		{
			shifts.GET("/summary", shiftHandler.Summary)
			shifts.POST("/close", shiftHandler.Close)
			shifts.POST("/deposits", shiftHandler.Deposit)
		}

		v1.GET("/motivation/day/:day", shiftHandler.MotivationDay)
		v1.GET("/invariants", shiftHandler.Invariants)
		v1.GET("/reports/:day", shiftHandler.Report)

		cfg := v1.Group("/settings")
		{
			cfg.GET("", settingsHandler.Get)
			cfg.PUT("", settingsHandler.Update)
			cfg.DELETE("/snapshots/:day", settingsHandler.DeleteSnapshot)
		}
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
