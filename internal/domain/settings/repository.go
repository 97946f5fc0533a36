package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository stores the live settings row and the per-day snapshots
type Repository interface {
	GetLive(ctx context.Context) (Settings, error)
	SaveLive(ctx context.Context, s Settings) (Settings, error)
	GetSnapshot(ctx context.Context, day time.Time) (Settings, error)
	// EnsureSnapshot stores live as the day's snapshot unless one exists and
	// returns whichever snapshot is stored afterwards
	EnsureSnapshot(ctx context.Context, day time.Time, live Settings) (Settings, error)
	DeleteSnapshot(ctx context.Context, day time.Time) error
	ListSnapshotDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSnapshotNotFound indicates the day has no configuration snapshot yet
type ErrSnapshotNotFound struct {
	BusinessDay string
}

func (e ErrSnapshotNotFound) Error() string {
	return "settings snapshot not found: " + e.BusinessDay
}

func (e ErrSnapshotNotFound) Is(target error) bool {
	t, ok := target.(ErrSnapshotNotFound)
	if !ok {
		return false
	}
	return t.BusinessDay == "" || t.BusinessDay == e.BusinessDay
}

// ErrSnapshotInUse rejects deleting the snapshot of a closed day
type ErrSnapshotInUse struct {
	BusinessDay string
}

func (e ErrSnapshotInUse) Error() string {
	return "settings snapshot belongs to a closed day: " + e.BusinessDay
}

func (e ErrSnapshotInUse) Is(target error) bool {
	t, ok := target.(ErrSnapshotInUse)
	if !ok {
		return false
	}
	return t.BusinessDay == "" || t.BusinessDay == e.BusinessDay
}
