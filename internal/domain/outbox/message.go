// Package outbox carries closed-day reports from the closing transaction to
// the report archive without a distributed transaction.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// EventShiftClosed is the only event type written today
const EventShiftClosed = "SHIFT_CLOSED"

// Message is one pending report publication
type Message struct {
	ID            int64               `json:"id"`
	BusinessDay   time.Time           `json:"business_day"`
	EventType     string              `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewShiftClosedMessage wraps a closure snapshot for publication
func NewShiftClosedMessage(snapshot *closure.Snapshot) (*Message, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	return &Message{
		BusinessDay: snapshot.BusinessDay,
		EventType:   EventShiftClosed,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// RecordFailedAttempt counts a failed publication. Once maxAttempts is
// reached the message is parked as FAILED_TO_PUBLISH and true is returned.
func (m *Message) RecordFailedAttempt(maxAttempts int) bool {
	now := time.Now().UTC()
	m.Attempts++
	m.LastAttemptAt = &now
	if m.Attempts < maxAttempts {
		return false
	}
	m.Status = shared.OutboxStatusFailedToPublish
	return true
}

// Snapshot decodes the closure snapshot carried by the message
func (m *Message) Snapshot() (*closure.Snapshot, error) {
	var snapshot closure.Snapshot
	if err := json.Unmarshal(m.Payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
