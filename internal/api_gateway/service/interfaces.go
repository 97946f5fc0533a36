package service

import (
	"context"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/audit"
	"github.com/tourdesk-shift-settlement/internal/settlement/closer"
)

// ShiftService defines the business day operations exposed over HTTP and the CLI
type ShiftService interface {
	// Summary returns the live aggregate of an open day or the stored figures of a closed one
	Summary(ctx context.Context, day time.Time) (*Summary, error)

	// Close closes the day. Closing a closed day returns the stored snapshot with Created=false.
	// Returns shared.GatingError while trips of the day are still open
	Close(ctx context.Context, day time.Time, closedBy string) (*CloseResult, error)

	// Deposit appends an owner deposit or salary payout.
	// Returns shared.ErrShiftClosed once the day is closed
	Deposit(ctx context.Context, req closer.DepositRequest) (*ledger.Entry, error)

	// MotivationDay returns the points and payout breakdown of a day. Open days are
	// previewed with the day's configuration snapshot, creating it on first access
	MotivationDay(ctx context.Context, day time.Time) (*MotivationDay, error)

	// Invariants runs the auditor over a day, an ISO week or a season
	Invariants(ctx context.Context, query InvariantsQuery) (*audit.Report, error)

	// Report returns the archived copy of a closed day.
	// Returns report.ErrNotFound until the archive has been written
	Report(ctx context.Context, day time.Time) (*report.Report, error)
}

// SettingsService defines the motivation configuration administration
type SettingsService interface {
	// GetLive returns the current global configuration
	GetLive(ctx context.Context) (settings.Settings, error)

	// GetSnapshot returns the configuration frozen for a business day
	GetSnapshot(ctx context.Context, day time.Time) (settings.Settings, error)

	// UpdateLive replaces the global configuration. Existing day snapshots are not touched
	UpdateLive(ctx context.Context, s settings.Settings) (settings.Settings, error)

	// DeleteSnapshot drops the snapshot of an open day so its next read uses the live configuration.
	// Returns settings.ErrSnapshotInUse when the day is already closed
	DeleteSnapshot(ctx context.Context, day time.Time) error
}

// Closer closes business days
type Closer interface {
	Close(ctx context.Context, day time.Time, closedBy string) (*closure.Snapshot, bool, error)
}

// DepositPoster appends deposits to open days
type DepositPoster interface {
	Post(ctx context.Context, req closer.DepositRequest) (*ledger.Entry, error)
}

// Auditor runs invariant checks
type Auditor interface {
	Run(ctx context.Context, r shared.DayRange, checks []audit.Check) (*audit.Report, error)
}
