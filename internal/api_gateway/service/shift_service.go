package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/report"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/logger"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
	"github.com/tourdesk-shift-settlement/internal/settlement/audit"
	"github.com/tourdesk-shift-settlement/internal/settlement/cashbox"
	"github.com/tourdesk-shift-settlement/internal/settlement/closer"
	"github.com/tourdesk-shift-settlement/internal/settlement/payout"
)

// Stores are the read models the shift service queries directly
type Stores struct {
	Ledger     ledger.Repository
	Closures   closure.Repository
	Settings   settings.Repository
	Motivation motivation.Repository
	Sales      sale.Repository
	Trips      trip.Repository
	Reports    report.Repository
}

// ShiftServiceImpl implements the ShiftService interface
type ShiftServiceImpl struct {
	closer   Closer
	deposits DepositPoster
	auditor  Auditor
	stores   Stores
	logger   *slog.Logger
}

// NewShiftService creates a new shift service
func NewShiftService(logger *slog.Logger, c Closer, deposits DepositPoster, auditor Auditor, stores Stores) ShiftService {
	return &ShiftServiceImpl{
		closer:   c,
		deposits: deposits,
		auditor:  auditor,
		stores:   stores,
		logger:   logger.With("component", "shift_service"),
	}
}

// Summary reads without taking any lock. A closed day is answered from its
// snapshot; its reserve is still queried since trip dates can move after close.
func (s *ShiftServiceImpl) Summary(ctx context.Context, day time.Time) (*Summary, error) {
	day = shared.NormalizeDay(day)

	snapshot, err := s.findClosure(ctx, day)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		reserve, err := s.stores.Ledger.FutureTripsReserve(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to compute future trips reserve: %w", err)
		}
		closedAt := snapshot.ClosedAt
		return &Summary{
			BusinessDay:            shared.FormatBusinessDay(day),
			Source:                 SourceSnapshot,
			IsClosed:               true,
			ClosedAt:               &closedAt,
			CollectedTotal:         snapshot.CollectedTotal,
			CollectedCash:          snapshot.CollectedCash,
			CollectedCard:          snapshot.CollectedCard,
			RefundTotal:            snapshot.RefundTotal,
			NetTotal:               snapshot.NetTotal,
			CashInCashbox:          snapshot.CashInCashbox,
			ExpectedSellersCashDue: snapshot.ExpectedSellersCashDue,
			CashDiscrepancy:        snapshot.CashDiscrepancy,
			Warnings:               snapshot.Warnings,
			SalaryDueTotal:         snapshot.SalaryDueTotal,
			FutureTripsReserve:     reserve,
		}, nil
	}

	openTrips, err := s.stores.Trips.CountOpen(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count open trips: %w", err)
	}
	entries, facts, err := s.loadDay(ctx, day)
	if err != nil {
		return nil, err
	}
	totals, err := aggregate.Fold(entries)
	if err != nil {
		return nil, err
	}
	cash := cashbox.Reconcile(totals, aggregate.ByParticipant(entries, facts))

	return &Summary{
		BusinessDay:            shared.FormatBusinessDay(day),
		Source:                 SourceLive,
		OpenTrips:              openTrips,
		CollectedTotal:         totals.CollectedTotal,
		CollectedCash:          totals.CollectedCash,
		CollectedCard:          totals.CollectedCard,
		RefundTotal:            totals.RefundTotal,
		NetTotal:               totals.NetTotal,
		CashInCashbox:          cash.CashInCashbox,
		ExpectedSellersCashDue: cash.ExpectedSellersCashDue,
		CashDiscrepancy:        cash.CashDiscrepancy,
		Warnings:               cash.Warnings,
		FutureTripsReserve:     aggregate.FutureTripsReserve(entries, facts, day),
		Ledger:                 &totals,
	}, nil
}

func (s *ShiftServiceImpl) Close(ctx context.Context, day time.Time, closedBy string) (*CloseResult, error) {
	if closedBy == "" {
		return nil, shared.ValidationError{Field: "closed_by", Reason: "is required"}
	}
	snapshot, created, err := s.closer.Close(ctx, day, closedBy)
	if err != nil {
		return nil, err
	}
	return &CloseResult{Snapshot: snapshot, Created: created}, nil
}

func (s *ShiftServiceImpl) Deposit(ctx context.Context, req closer.DepositRequest) (*ledger.Entry, error) {
	return s.deposits.Post(ctx, req)
}

// MotivationDay never recomputes a closed day. An open day is previewed with the
// participant states as of the last close.
func (s *ShiftServiceImpl) MotivationDay(ctx context.Context, day time.Time) (*MotivationDay, error) {
	day = shared.NormalizeDay(day)

	snapshot, err := s.findClosure(ctx, day)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		return motivationFromSnapshot(snapshot, SourceSnapshot, true), nil
	}

	live, err := s.stores.Settings.GetLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read live settings: %w", err)
	}
	cfg, err := s.stores.Settings.EnsureSnapshot(ctx, day, live)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settings snapshot: %w", err)
	}

	entries, facts, err := s.loadDay(ctx, day)
	if err != nil {
		return nil, err
	}
	states, err := s.stores.Motivation.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load motivation states: %w", err)
	}

	totals, err := aggregate.Fold(entries)
	if err != nil {
		return nil, err
	}
	participants := aggregate.ByParticipant(entries, facts)
	result := payout.Compute(payout.Input{
		BusinessDay:  day,
		Participants: participants,
		Settings:     cfg,
		States:       states,
	})
	preview := closer.BuildSnapshot(day, time.Time{}, "", totals, participants, cashbox.Reconcile(totals, participants), result)

	logger.ForDay(s.logger, day).Debug("Motivation preview computed",
		"settings_version", cfg.Version,
		"fund_total", result.FundTotal,
		"participants", len(result.Participants),
	)
	return motivationFromSnapshot(preview, SourceLive, false), nil
}

func (s *ShiftServiceImpl) Invariants(ctx context.Context, query InvariantsQuery) (*audit.Report, error) {
	r, err := query.Range()
	if err != nil {
		return nil, err
	}
	checks, err := audit.ParseChecks(query.Checks)
	if err != nil {
		return nil, err
	}
	return s.auditor.Run(ctx, r, checks)
}

func (s *ShiftServiceImpl) Report(ctx context.Context, day time.Time) (*report.Report, error) {
	return s.stores.Reports.GetByBusinessDay(ctx, shared.FormatBusinessDay(day))
}

// Range resolves the query into the audited days
func (q InvariantsQuery) Range() (shared.DayRange, error) {
	set := 0
	for _, v := range []string{q.Day, q.Week, q.Season} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return shared.DayRange{}, shared.ValidationError{Field: "range", Reason: "exactly one of day, week or season is required"}
	}

	switch {
	case q.Day != "":
		day, err := shared.ParseBusinessDay(q.Day)
		if err != nil {
			return shared.DayRange{}, err
		}
		return shared.SingleDay(day), nil
	case q.Week != "":
		return shared.ParseISOWeek(q.Week)
	default:
		return shared.ParseSeason(q.Season)
	}
}

func (s *ShiftServiceImpl) findClosure(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	snapshot, err := s.stores.Closures.GetByBusinessDay(ctx, day)
	if err != nil {
		if errors.Is(err, closure.ErrNotFound{}) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read closure snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *ShiftServiceImpl) loadDay(ctx context.Context, day time.Time) ([]*ledger.Entry, map[string]*sale.Fact, error) {
	entries, err := s.stores.Ledger.ListByBusinessDay(ctx, day)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	facts, err := s.stores.Sales.ListByIDs(ctx, closer.SaleIDs(entries))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sale facts: %w", err)
	}
	return entries, facts, nil
}
