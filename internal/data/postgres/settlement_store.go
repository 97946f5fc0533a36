package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
	"github.com/tourdesk-shift-settlement/internal/settlement/closer"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

// SettlementStore implements closer.Store on top of the repositories.
// The per-day lock is a transaction-scoped advisory lock on the day key plus
// a durable row in shift_close_locks, so it holds across every process that
// shares the database.
type SettlementStore struct {
	db     persistence.TxBeginner
	repos  *Repositories
	logger *slog.Logger
}

var (
	_ closer.Store        = (*SettlementStore)(nil)
	_ service.IngestStore = (*SettlementStore)(nil)
)

func NewSettlementStore(logger *slog.Logger, db *persistence.PostgresDB, repos *Repositories) *SettlementStore {
	return &SettlementStore{
		db:     db.Pool(),
		repos:  repos,
		logger: logger,
	}
}

func (s *SettlementStore) GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	return s.repos.Closures.GetByBusinessDay(ctx, day)
}

func (s *SettlementStore) CountOpenTrips(ctx context.Context, day time.Time) (int, error) {
	return s.repos.Trips.CountOpen(ctx, day)
}

// RunInTx hands fn a unit of work whose repositories share one transaction
func (s *SettlementStore) RunInTx(ctx context.Context, fn func(tx closer.Tx) error) error {
	return persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(s.bind(tx))
	})
}

// RunIngestTx is RunInTx for the event ingestion path
func (s *SettlementStore) RunIngestTx(ctx context.Context, fn func(tx service.IngestTx) error) error {
	return persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(s.bind(tx))
	})
}

func (s *SettlementStore) bind(tx pgx.Tx) *settlementTx {
	return &settlementTx{
		tx:         tx,
		ledger:     s.repos.Ledger.WithTx(tx),
		closures:   s.repos.Closures.WithTx(tx),
		settings:   s.repos.Settings.WithTx(tx),
		motivation: s.repos.Motivation.WithTx(tx),
		sales:      s.repos.Sales.WithTx(tx),
		trips:      s.repos.Trips.WithTx(tx),
		outbox:     s.repos.Outbox.WithTx(tx),
		logger:     s.logger,
	}
}

type settlementTx struct {
	tx         pgx.Tx
	ledger     ledger.Repository
	closures   closure.Repository
	settings   settings.Repository
	motivation motivation.Repository
	sales      sale.Repository
	trips      trip.Repository
	outbox     outbox.Repository
	logger     *slog.Logger
}

func lockKey(day time.Time) string {
	return "shift-close:" + shared.FormatBusinessDay(day)
}

// TryAcquire blocks on the day's advisory lock and then claims the lock row.
// A row left by an earlier committed close means the day is taken.
func (t *settlementTx) TryAcquire(ctx context.Context, day time.Time) (bool, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey(day)); err != nil {
		return false, fmt.Errorf("failed to take advisory lock: %w", err)
	}

	result, err := t.tx.Exec(ctx, `
		INSERT INTO shift_close_locks (business_day, acquired_at)
		VALUES ($1, NOW())
		ON CONFLICT (business_day) DO NOTHING
	`, day)
	if err != nil {
		return false, fmt.Errorf("failed to claim close lock row: %w", err)
	}
	if result.RowsAffected() == 0 {
		t.logger.Debug("Close lock row already claimed", "business_day", shared.FormatBusinessDay(day))
		return false, nil
	}
	return true, nil
}

// LockDayShared waits for an in-flight close of the day to finish
func (t *settlementTx) LockDayShared(ctx context.Context, day time.Time) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock_shared(hashtext($1))`, lockKey(day)); err != nil {
		return fmt.Errorf("failed to take shared advisory lock: %w", err)
	}
	return nil
}

func (t *settlementTx) GetClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	return t.closures.GetByBusinessDay(ctx, day)
}

func (t *settlementTx) CountOpenTrips(ctx context.Context, day time.Time) (int, error) {
	return t.trips.CountOpen(ctx, day)
}

// EnsureSettingsSnapshot freezes the live settings for the day on first use
func (t *settlementTx) EnsureSettingsSnapshot(ctx context.Context, day time.Time) (settings.Settings, error) {
	live, err := t.settings.GetLive(ctx)
	if err != nil {
		return settings.Settings{}, err
	}
	return t.settings.EnsureSnapshot(ctx, day, live)
}

func (t *settlementTx) ListEntries(ctx context.Context, day time.Time) ([]*ledger.Entry, error) {
	return t.ledger.ListByBusinessDay(ctx, day)
}

func (t *settlementTx) SaleFacts(ctx context.Context, saleIDs []string) (map[string]*sale.Fact, error) {
	return t.sales.ListByIDs(ctx, saleIDs)
}

func (t *settlementTx) MotivationStates(ctx context.Context) (map[string]motivation.State, error) {
	return t.motivation.GetAll(ctx)
}

func (t *settlementTx) Append(ctx context.Context, entry *ledger.Entry) error {
	return t.ledger.Append(ctx, entry)
}

func (t *settlementTx) UpsertSale(ctx context.Context, fact *sale.Fact) error {
	return t.sales.Upsert(ctx, fact)
}

func (t *settlementTx) UpsertTrip(ctx context.Context, tr *trip.Trip) error {
	return t.trips.Upsert(ctx, tr)
}

func (t *settlementTx) CreateClosure(ctx context.Context, snapshot *closure.Snapshot) error {
	return t.closures.Create(ctx, snapshot)
}

func (t *settlementTx) SaveMotivationStates(ctx context.Context, states []motivation.State) error {
	return t.motivation.Save(ctx, states)
}

// EnqueueReport writes the SHIFT_CLOSED outbox row in the closing transaction
func (t *settlementTx) EnqueueReport(ctx context.Context, snapshot *closure.Snapshot) error {
	message, err := outbox.NewShiftClosedMessage(snapshot)
	if err != nil {
		return fmt.Errorf("failed to build shift report message: %w", err)
	}
	return t.outbox.Enqueue(ctx, message)
}
