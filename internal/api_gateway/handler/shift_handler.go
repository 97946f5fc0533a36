package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/middleware"
	"github.com/tourdesk-shift-settlement/internal/api_gateway/service"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/closer"
)

// ShiftHandler handles HTTP requests for business day operations
type ShiftHandler struct {
	shiftService service.ShiftService
	logger       *slog.Logger
}

// NewShiftHandler creates a new shift handler
func NewShiftHandler(logger *slog.Logger, shiftService service.ShiftService) *ShiftHandler {
	return &ShiftHandler{
		shiftService: shiftService,
		logger:       logger,
	}
}

// Summary returns the live or stored cash picture of a day
func (h *ShiftHandler) Summary(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}

	summary, err := h.shiftService.Summary(c.Request.Context(), day)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, summary)
}

// Close closes the day; repeating the call returns the same snapshot
func (h *ShiftHandler) Close(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}

	var req CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.shiftService.Close(c.Request.Context(), day, req.ClosedBy)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	h.logger.Info("Shift close requested",
		"business_day", shared.FormatBusinessDay(day),
		"closed_by", req.ClosedBy,
		"created", res.Created,
		"correlation_id", middleware.GetCorrelationID(c),
	)
	RespondOK(c, res)
}

// Deposit appends an owner deposit or a salary payout to an open day
func (h *ShiftHandler) Deposit(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.shiftService.Deposit(c.Request.Context(), closer.DepositRequest{
		BusinessDay:   day,
		Type:          ledger.Type(req.Type),
		ParticipantID: req.ParticipantID,
		Role:          shared.Role(req.Role),
		Amount:        req.Amount,
	})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapEntryToResponse(entry))
}

// MotivationDay returns the points and payout breakdown of a day
func (h *ShiftHandler) MotivationDay(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}

	md, err := h.shiftService.MotivationDay(c.Request.Context(), day)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, md)
}

// Invariants runs the auditor over ?day=, ?week= or ?season=
func (h *ShiftHandler) Invariants(c *gin.Context) {
	var params InvariantsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query: "+err.Error())
		return
	}

	rep, err := h.shiftService.Invariants(c.Request.Context(), service.InvariantsQuery{
		Day:    params.Day,
		Week:   params.Week,
		Season: params.Season,
		Checks: params.Checks,
	})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, rep)
}

// Report returns the archived copy of a closed day
func (h *ShiftHandler) Report(c *gin.Context) {
	day, ok := h.dayParam(c)
	if !ok {
		return
	}

	rep, err := h.shiftService.Report(c.Request.Context(), day)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, rep)
}

func (h *ShiftHandler) dayParam(c *gin.Context) (time.Time, bool) {
	day, err := shared.ParseBusinessDay(c.Param("day"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return time.Time{}, false
	}
	return day, true
}
