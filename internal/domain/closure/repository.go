package closure

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository stores closure snapshots. There is no update operation.
type Repository interface {
	Create(ctx context.Context, snapshot *Snapshot) error
	GetByBusinessDay(ctx context.Context, day time.Time) (*Snapshot, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*Snapshot, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrNotFound indicates the business day has not been closed
type ErrNotFound struct {
	BusinessDay string
}

func (e ErrNotFound) Error() string {
	return "shift closure not found: " + e.BusinessDay
}

// Is matches any ErrNotFound when the target day is empty
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	return t.BusinessDay == "" || t.BusinessDay == e.BusinessDay
}

// ErrAlreadyClosed indicates a second snapshot for the same day was rejected
type ErrAlreadyClosed struct {
	BusinessDay string
}

func (e ErrAlreadyClosed) Error() string {
	return "shift already closed: " + e.BusinessDay
}

func (e ErrAlreadyClosed) Is(target error) bool {
	t, ok := target.(ErrAlreadyClosed)
	if !ok {
		return false
	}
	return t.BusinessDay == "" || t.BusinessDay == e.BusinessDay
}
