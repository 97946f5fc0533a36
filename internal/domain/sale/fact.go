// Package sale keeps the minimal facts about a sale the ledger needs but does
// not carry itself: boat category, zone at time of sale and the trip date.
package sale

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Fact describes one sale as reported by the sales collaborator
type Fact struct {
	SaleID        string      `json:"sale_id"`
	ParticipantID string      `json:"participant_id"`
	Role          shared.Role `json:"role"`
	Category      string      `json:"category"`
	Zone          string      `json:"zone"`
	PaymentDay    time.Time   `json:"payment_day"`
	TripDay       time.Time   `json:"trip_day"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// FromEvent extracts the fact carried by a sale event. A zero tripDay means
// the event did not carry one.
func FromEvent(ev *shared.SaleEvent, paymentDay, tripDay time.Time) *Fact {
	return &Fact{
		SaleID:        ev.SaleID,
		ParticipantID: ev.ParticipantID,
		Role:          ev.Role,
		Category:      ev.Category,
		Zone:          ev.Zone,
		PaymentDay:    paymentDay,
		TripDay:       tripDay,
		UpdatedAt:     time.Now().UTC(),
	}
}

// Merge applies a later event's fact to the stored one. Only non-empty
// fields of the update replace stored values, so a cancellation that omits
// category, zone or trip day keeps what the original sale recorded. A new
// sale without a trip day trips on its payment day.
func Merge(stored, update *Fact) *Fact {
	if stored == nil {
		merged := *update
		if merged.TripDay.IsZero() {
			merged.TripDay = merged.PaymentDay
		}
		return &merged
	}

	merged := *stored
	if update.ParticipantID != "" {
		merged.ParticipantID = update.ParticipantID
	}
	if update.Role != "" {
		merged.Role = update.Role
	}
	if update.Category != "" {
		merged.Category = update.Category
	}
	if update.Zone != "" {
		merged.Zone = update.Zone
	}
	if !update.TripDay.IsZero() {
		merged.TripDay = update.TripDay
	}
	merged.UpdatedAt = update.UpdatedAt
	return &merged
}

// Repository stores sale facts. Upsert follows Merge.
type Repository interface {
	Upsert(ctx context.Context, fact *Fact) error
	ListByIDs(ctx context.Context, saleIDs []string) (map[string]*Fact, error)
	WithTx(tx pgx.Tx) Repository
}
