package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/service"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// SettingsHandler handles HTTP requests for the motivation configuration
type SettingsHandler struct {
	settingsService service.SettingsService
	logger          *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(logger *slog.Logger, settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// Get returns the live configuration, or the snapshot of ?day= when given
func (h *SettingsHandler) Get(c *gin.Context) {
	var params SnapshotParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	if params.Day == "" {
		live, err := h.settingsService.GetLive(c.Request.Context())
		if err != nil {
			RespondDomainError(c, h.logger, err)
			return
		}
		RespondOK(c, live)
		return
	}

	day, err := shared.ParseBusinessDay(params.Day)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	frozen, err := h.settingsService.GetSnapshot(c.Request.Context(), day)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, frozen)
}

// Update replaces the live configuration. Absent fields take their defaults.
func (h *SettingsHandler) Update(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cfg, err := settings.Decode(body)
	if err != nil {
		h.logger.Error("Invalid settings document", "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	saved, err := h.settingsService.UpdateLive(c.Request.Context(), cfg)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, saved)
}

// DeleteSnapshot drops the settings snapshot of an open day
func (h *SettingsHandler) DeleteSnapshot(c *gin.Context) {
	day, err := shared.ParseBusinessDay(c.Param("day"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.settingsService.DeleteSnapshot(c.Request.Context(), day); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondNoContent(c)
}
