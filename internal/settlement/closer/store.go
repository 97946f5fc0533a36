// Package closer implements the OPEN -> CLOSED transition of a business day
// and the deposit path that must never interleave with it.
package closer

import (
	"context"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
)

// Store is the persistence the closer runs against. Reads outside RunInTx
// never lock.
type Store interface {
	GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error)
	CountOpenTrips(ctx context.Context, day time.Time) (int, error)
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a unit of work. Everything written through it commits or rolls back together.
type Tx interface {
	// TryAcquire takes the per-day close lock. It returns false when another
	// close of the same day already holds or held it. The lock must be visible
	// to every process sharing the database.
	TryAcquire(ctx context.Context, day time.Time) (bool, error)
	// LockDayShared blocks while a close of the same day is in flight
	LockDayShared(ctx context.Context, day time.Time) error

	GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error)
	CountOpenTrips(ctx context.Context, day time.Time) (int, error)
	EnsureSettingsSnapshot(ctx context.Context, day time.Time) (settings.Settings, error)
	ListEntries(ctx context.Context, day time.Time) ([]*ledger.Entry, error)
	SaleFacts(ctx context.Context, saleIDs []string) (map[string]*sale.Fact, error)
	MotivationStates(ctx context.Context) (map[string]motivation.State, error)

	Append(ctx context.Context, entry *ledger.Entry) error
	CreateClosure(ctx context.Context, snapshot *closure.Snapshot) error
	SaveMotivationStates(ctx context.Context, states []motivation.State) error
	EnqueueReport(ctx context.Context, snapshot *closure.Snapshot) error
}

// Recorder receives close metrics
type Recorder interface {
	ShiftClosed(result string, elapsed time.Duration)
	Withheld(entryType string, amount int64)
}

// SaleIDs collects the distinct sale ids referenced by entries
func SaleIDs(entries []*ledger.Entry) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		if e.SourceSaleID == nil {
			continue
		}
		if _, ok := seen[*e.SourceSaleID]; ok {
			continue
		}
		seen[*e.SourceSaleID] = struct{}{}
		ids = append(ids, *e.SourceSaleID)
	}
	return ids
}
