package shared

import (
	"time"
)

// EventType discriminates the envelopes published by the inventory service
type EventType string

const (
	EventTypeSale EventType = "SALE"
	EventTypeTrip EventType = "TRIP"
)

// Role of a participant at the time of a sale
type Role string

const (
	RoleSeller     Role = "seller"
	RoleDispatcher Role = "dispatcher"
)

// SaleKind classifies a sale event
type SaleKind string

const (
	SaleKindAccepted   SaleKind = "ACCEPTED"
	SaleKindPrepayment SaleKind = "PREPAYMENT"
	SaleKindCancel     SaleKind = "CANCEL"
)

// TripStatus mirrors the scheduling state of a trip
type TripStatus string

const (
	TripStatusScheduled TripStatus = "SCHEDULED"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

// SaleEvent is a posted money movement reported by the inventory/sales service.
// Amount is in minor currency units; for CANCEL it is the refunded amount (positive).
type SaleEvent struct {
	EventID       string    `json:"event_id"`
	SaleID        string    `json:"sale_id"`
	ParticipantID string    `json:"participant_id"`
	Role          Role      `json:"role"`
	Category      string    `json:"category"`
	Zone          string    `json:"zone"`
	Kind          SaleKind  `json:"kind"`
	Method        string    `json:"method"`
	Amount        int64     `json:"amount"`
	CashAmount    int64     `json:"cash_amount,omitempty"`
	CardAmount    int64     `json:"card_amount,omitempty"`
	PaymentDay    string    `json:"payment_day"`
	TripDay       string    `json:"trip_day"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// TripEvent reports a trip being scheduled, completed or cancelled
type TripEvent struct {
	TripID  string     `json:"trip_id"`
	TripDay string     `json:"trip_day"`
	Status  TripStatus `json:"status"`
}

// Envelope wraps every message on the sale events topic
type Envelope struct {
	Type EventType  `json:"type"`
	Sale *SaleEvent `json:"sale,omitempty"`
	Trip *TripEvent `json:"trip,omitempty"`
}

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
