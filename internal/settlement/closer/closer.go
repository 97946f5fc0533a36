package closer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/logger"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
	"github.com/tourdesk-shift-settlement/internal/settlement/cashbox"
	"github.com/tourdesk-shift-settlement/internal/settlement/payout"
)

// errLockHeld rolls back a transaction that lost the per-day lock
var errLockHeld = errors.New("close lock held by another caller")

type Closer struct {
	store    Store
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func New(store Store, recorder Recorder, logger *slog.Logger) *Closer {
	return &Closer{
		store:    store,
		recorder: recorder,
		logger:   logger.With("component", "shift_closer"),
		now:      time.Now,
	}
}

// Close closes the business day. It returns the stored snapshot and whether
// this call created it. Closing a closed day returns the existing snapshot.
func (c *Closer) Close(ctx context.Context, day time.Time, closedBy string) (*closure.Snapshot, bool, error) {
	start := c.now()
	day = shared.NormalizeDay(day)
	log := logger.ForDay(c.logger, day)

	existing, err := c.findClosure(ctx, day)
	if err != nil {
		c.recorder.ShiftClosed(metrics.ResultError, time.Since(start))
		return nil, false, err
	}
	if existing != nil {
		log.Info("Business day already closed, returning stored snapshot")
		c.recorder.ShiftClosed(metrics.ResultIdempotent, time.Since(start))
		return existing, false, nil
	}

	open, err := c.store.CountOpenTrips(ctx, day)
	if err != nil {
		c.recorder.ShiftClosed(metrics.ResultError, time.Since(start))
		return nil, false, fmt.Errorf("failed to count open trips: %w", err)
	}
	if open > 0 {
		log.Warn("Close rejected, trips still open", "open_trips", open)
		c.recorder.ShiftClosed(metrics.ResultGated, time.Since(start))
		return nil, false, shared.GatingError{BusinessDay: shared.FormatBusinessDay(day), OpenTrips: open}
	}

	var created *closure.Snapshot
	var withheld []*ledger.Entry
	err = c.store.RunInTx(ctx, func(tx Tx) error {
		acquired, err := tx.TryAcquire(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to acquire close lock: %w", err)
		}
		if !acquired {
			return errLockHeld
		}

		created, withheld, err = c.closeInTx(ctx, tx, day, closedBy)
		return err
	})

	switch {
	case errors.Is(err, errLockHeld):
		snapshot, getErr := c.store.GetClosure(ctx, day)
		if getErr != nil {
			c.recorder.ShiftClosed(metrics.ResultError, time.Since(start))
			return nil, false, fmt.Errorf("failed to read snapshot after losing close lock: %w", getErr)
		}
		log.Info("Concurrent close won the lock, returning its snapshot")
		c.recorder.ShiftClosed(metrics.ResultIdempotent, time.Since(start))
		return snapshot, false, nil
	case errors.Is(err, shared.GatingError{}):
		c.recorder.ShiftClosed(metrics.ResultGated, time.Since(start))
		return nil, false, err
	case err != nil:
		log.Error("Failed to close business day", "error", err)
		c.recorder.ShiftClosed(metrics.ResultError, time.Since(start))
		return nil, false, err
	}

	for _, e := range withheld {
		c.recorder.Withheld(string(e.Type), e.Amount)
	}
	c.recorder.ShiftClosed(metrics.ResultClosed, time.Since(start))
	log.Info("Business day closed",
		"closed_by", closedBy,
		"net_total", created.NetTotal,
		"fund_total", created.FundTotal,
		"weekly_amount", created.WeeklyAmount,
		"season_amount", created.SeasonAmount,
		"warnings", len(created.Warnings),
	)
	return created, true, nil
}

// closeInTx runs steps 3 to 7 of the close under the per-day lock
func (c *Closer) closeInTx(ctx context.Context, tx Tx, day time.Time, closedBy string) (*closure.Snapshot, []*ledger.Entry, error) {
	open, err := tx.CountOpenTrips(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count open trips: %w", err)
	}
	if open > 0 {
		return nil, nil, shared.GatingError{BusinessDay: shared.FormatBusinessDay(day), OpenTrips: open}
	}

	cfg, err := tx.EnsureSettingsSnapshot(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure settings snapshot: %w", err)
	}

	entries, err := tx.ListEntries(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	facts, err := tx.SaleFacts(ctx, SaleIDs(entries))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sale facts: %w", err)
	}
	states, err := tx.MotivationStates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load motivation states: %w", err)
	}

	totals, err := aggregate.Fold(entries)
	if err != nil {
		return nil, nil, err
	}
	participants := aggregate.ByParticipant(entries, facts)
	result := payout.Compute(payout.Input{
		BusinessDay:  day,
		Participants: participants,
		Settings:     cfg,
		States:       states,
	})

	closedAt := c.now().UTC().Truncate(time.Microsecond)
	var withheld []*ledger.Entry
	for _, w := range []struct {
		typ    ledger.Type
		amount int64
	}{
		{ledger.TypeWithholdWeekly, result.WeeklyAmount},
		{ledger.TypeWithholdSeason, result.SeasonAmount},
	} {
		if w.amount <= 0 {
			continue
		}
		entry, err := ledger.NewEntry(uuid.New(), day, ledger.KindFund, w.typ, ledger.MethodInternal, w.amount, closedAt)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.Append(ctx, entry); err != nil {
			return nil, nil, fmt.Errorf("failed to append %s: %w", w.typ, err)
		}
		withheld = append(withheld, entry)
	}

	cash := cashbox.Reconcile(totals, participants)
	snapshot := BuildSnapshot(day, closedAt, closedBy, totals, participants, cash, result)

	if err := tx.CreateClosure(ctx, snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to create closure snapshot: %w", err)
	}
	if err := tx.SaveMotivationStates(ctx, result.NextStates); err != nil {
		return nil, nil, fmt.Errorf("failed to save motivation states: %w", err)
	}
	if err := tx.EnqueueReport(ctx, snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to enqueue shift report: %w", err)
	}
	return snapshot, withheld, nil
}

func (c *Closer) findClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	snapshot, err := c.store.GetClosure(ctx, day)
	if err != nil {
		if errors.Is(err, closure.ErrNotFound{}) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read closure snapshot: %w", err)
	}
	return snapshot, nil
}

// BuildSnapshot assembles the closure record from the computed parts
func BuildSnapshot(
	day, closedAt time.Time,
	closedBy string,
	totals aggregate.Totals,
	participants []aggregate.ParticipantRevenue,
	cash cashbox.Result,
	result *payout.Result,
) *closure.Snapshot {
	s := &closure.Snapshot{
		BusinessDay:            day,
		ClosedAt:               closedAt,
		ClosedBy:               closedBy,
		CollectedTotal:         totals.CollectedTotal,
		CollectedCash:          totals.CollectedCash,
		CollectedCard:          totals.CollectedCard,
		RefundTotal:            totals.RefundTotal,
		NetTotal:               totals.NetTotal,
		SalaryDueTotal:         result.PayoutTotal(),
		CashInCashbox:          cash.CashInCashbox,
		ExpectedSellersCashDue: cash.ExpectedSellersCashDue,
		CashDiscrepancy:        cash.CashDiscrepancy,
		Warnings:               cash.Warnings,
		Mode:                   string(result.Mode),
		PointsEnabled:          result.PointsEnabled,
		SettingsVersion:        result.SettingsVersion,
		RevenueTotal:           result.RevenueTotal,
		FundTotal:              result.FundTotal,
		WeeklyAmount:           result.WeeklyAmount,
		SeasonAmount:           result.SeasonAmount,
		DispatcherAmountTotal:  result.DispatcherAmountTotal,
		FundTotalAfterWithhold: result.FundTotalAfterWithhold,
		IndividualFund:         result.IndividualFund,
		TeamFund:               result.TeamFund,
		Dispatchers:            []closure.DispatcherLine{},
		Sellers:                []closure.SellerLine{},
	}

	for _, d := range result.Dispatchers.PerDispatcherAmounts {
		s.Dispatchers = append(s.Dispatchers, closure.DispatcherLine{
			ParticipantID: d.ParticipantID,
			Revenue:       d.Revenue,
			Amount:        d.Amount,
		})
	}

	byID := make(map[string]aggregate.ParticipantRevenue, len(participants))
	for _, p := range participants {
		byID[p.ParticipantID] = p
	}
	for _, p := range result.Participants {
		rev := byID[p.ParticipantID]
		s.Sellers = append(s.Sellers, closure.SellerLine{
			ParticipantID:    p.ParticipantID,
			Role:             p.Role,
			Revenue:          p.Revenue,
			CollectedCash:    rev.CollectedCash,
			DepositCash:      rev.DepositCash,
			CashDueToOwner:   rev.CashDueToOwner(),
			Level:            string(p.Level),
			StreakDays:       p.StreakDays,
			PointsBase:       p.PointsBase,
			StreakMultiplier: p.StreakMultiplier,
			PointsTotal:      p.PointsTotal,
			Payout:           p.Payout,
		})
	}
	return s
}
