// Package report describes the archived copy of a closed business day: the
// closure snapshot together with the ledger entries it was computed from.
package report

import (
	"context"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
)

type Report struct {
	BusinessDay string            `json:"business_day"`
	ClosedAt    time.Time         `json:"closed_at"`
	ClosedBy    string            `json:"closed_by"`
	Snapshot    *closure.Snapshot `json:"snapshot"`
	Entries     []*ledger.Entry   `json:"entries"`
	ArchivedAt  time.Time         `json:"archived_at"`
}

// New builds the archive document for a snapshot
func New(snapshot *closure.Snapshot, entries []*ledger.Entry, businessDay string) *Report {
	return &Report{
		BusinessDay: businessDay,
		ClosedAt:    snapshot.ClosedAt,
		ClosedBy:    snapshot.ClosedBy,
		Snapshot:    snapshot,
		Entries:     entries,
		ArchivedAt:  time.Now().UTC(),
	}
}

// Repository archives reports; saving the same day twice replaces the document
type Repository interface {
	Save(ctx context.Context, report *Report) error
	GetByBusinessDay(ctx context.Context, businessDay string) (*Report, error)
}

// ErrNotFound indicates no report was archived for the day yet
type ErrNotFound struct {
	BusinessDay string
}

func (e ErrNotFound) Error() string {
	return "shift report not found: " + e.BusinessDay
}

func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	return t.BusinessDay == "" || t.BusinessDay == e.BusinessDay
}
