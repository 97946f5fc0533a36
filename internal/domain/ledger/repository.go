package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the ledger store. Append is the only write operation.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByBusinessDay(ctx context.Context, day time.Time) ([]*Entry, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]*Entry, error)
	ListByTypesInRange(ctx context.Context, types []Type, from, to time.Time) ([]*Entry, error)
	CountByDayAndType(ctx context.Context, types []Type, from, to time.Time) ([]DayTypeCount, error)
	FutureTripsReserve(ctx context.Context, day time.Time) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// DayTypeCount is one group of the uniqueness audit
type DayTypeCount struct {
	BusinessDay time.Time
	Type        Type
	Count       int
}

// ErrDuplicateEntry indicates an entry id was already appended
type ErrDuplicateEntry struct {
	ID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.ID.String()
}

// Is matches any ErrDuplicateEntry when the target id is empty
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
