// Package trip tracks the operational status of scheduled trips. A business
// day can only close once none of its trips is still scheduled.
package trip

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

type Trip struct {
	TripID    string            `json:"trip_id"`
	TripDay   time.Time         `json:"trip_day"`
	Status    shared.TripStatus `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsOpen reports whether the trip still blocks closing its day
func (t *Trip) IsOpen() bool {
	return t.Status == shared.TripStatusScheduled
}

// Repository stores trips
type Repository interface {
	Upsert(ctx context.Context, trip *Trip) error
	CountOpen(ctx context.Context, day time.Time) (int, error)
	WithTx(tx pgx.Tx) Repository
}
