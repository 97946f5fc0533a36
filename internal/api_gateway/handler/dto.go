package handler

import (
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// CloseShiftRequest represents a request to close a business day
type CloseShiftRequest struct {
	ClosedBy string `json:"closed_by" binding:"required"`
}

// CreateDepositRequest represents an owner deposit or a salary payout
type CreateDepositRequest struct {
	Type          string `json:"type" binding:"required,oneof=DEPOSIT_TO_OWNER_CASH DEPOSIT_TO_OWNER_CARD SALARY_PAYOUT_CASH SALARY_PAYOUT_CARD"`
	ParticipantID string `json:"participant_id" binding:"required"`
	Role          string `json:"role,omitempty" binding:"omitempty,oneof=seller dispatcher"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID            string `json:"id"`
	BusinessDay   string `json:"business_day"`
	Kind          string `json:"kind"`
	Type          string `json:"type"`
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	ParticipantID string `json:"participant_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// InvariantsParams represents the query of the audit endpoint
type InvariantsParams struct {
	Day    string `form:"day"`
	Week   string `form:"week"`
	Season string `form:"season"`
	Checks string `form:"checks"`
}

// SnapshotParams selects a day's frozen settings instead of the live ones
type SnapshotParams struct {
	Day string `form:"day"`
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID.String(),
		BusinessDay:   shared.FormatBusinessDay(e.BusinessDay),
		Kind:          string(e.Kind),
		Type:          string(e.Type),
		Method:        string(e.Method),
		Amount:        e.Amount,
		Status:        string(e.Status),
		ParticipantID: e.Participant(),
		OccurredAt:    e.OccurredAt.Format(time.RFC3339),
	}
}
