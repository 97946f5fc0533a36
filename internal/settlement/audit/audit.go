// Package audit recomputes settlement figures from the ledger and cross-checks
// them against the stored snapshots. It only reads; findings are report data.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
)

type Check string

const (
	CheckDayInvariant        Check = "day_invariant"
	CheckWithholdConsistency Check = "withhold_consistency"
	CheckLedgerUniqueness    Check = "ledger_uniqueness"
	CheckImmutability        Check = "immutability"
)

// AllChecks lists every check in report order
func AllChecks() []Check {
	return []Check{CheckDayInvariant, CheckWithholdConsistency, CheckLedgerUniqueness, CheckImmutability}
}

// ParseChecks reads a comma separated list; empty input selects every check
func ParseChecks(csv string) ([]Check, error) {
	if strings.TrimSpace(csv) == "" {
		return AllChecks(), nil
	}
	known := make(map[Check]bool)
	for _, c := range AllChecks() {
		known[c] = true
	}

	var out []Check
	seen := make(map[Check]bool)
	for _, part := range strings.Split(csv, ",") {
		c := Check(strings.TrimSpace(part))
		if !known[c] {
			return nil, shared.ValidationError{Field: "checks", Reason: fmt.Sprintf("unknown check %q", c)}
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

type ClosureReader interface {
	ListInRange(ctx context.Context, from, to time.Time) ([]*closure.Snapshot, error)
}

type LedgerReader interface {
	ListByRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error)
	CountByDayAndType(ctx context.Context, types []ledger.Type, from, to time.Time) ([]ledger.DayTypeCount, error)
}

type SnapshotReader interface {
	ListSnapshotDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type CheckResult struct {
	Name    Check          `json:"name"`
	OK      bool           `json:"ok"`
	Errors  []string       `json:"errors"`
	Details map[string]any `json:"details,omitempty"`
}

type Report struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	OK     bool          `json:"ok"`
	Checks []CheckResult `json:"checks"`
}

type Auditor struct {
	closures  ClosureReader
	ledger    LedgerReader
	snapshots SnapshotReader
	logger    *slog.Logger
}

func NewAuditor(closures ClosureReader, ledger LedgerReader, snapshots SnapshotReader, logger *slog.Logger) *Auditor {
	return &Auditor{
		closures:  closures,
		ledger:    ledger,
		snapshots: snapshots,
		logger:    logger.With("component", "auditor"),
	}
}

// dataset is everything the checks need, loaded once per run
type dataset struct {
	closures     []*closure.Snapshot
	entries      []*ledger.Entry
	counts       []ledger.DayTypeCount
	snapshotDays map[string]bool
}

// Run executes the selected checks over the range
func (a *Auditor) Run(ctx context.Context, r shared.DayRange, checks []Check) (*Report, error) {
	if len(checks) == 0 {
		checks = AllChecks()
	}

	data, err := a.load(ctx, r)
	if err != nil {
		return nil, err
	}

	report := &Report{
		From:   shared.FormatBusinessDay(r.From),
		To:     shared.FormatBusinessDay(r.To),
		OK:     true,
		Checks: make([]CheckResult, 0, len(checks)),
	}
	for _, c := range checks {
		var res CheckResult
		switch c {
		case CheckDayInvariant:
			res = checkDayInvariant(data)
		case CheckWithholdConsistency:
			res = checkWithholdConsistency(data)
		case CheckLedgerUniqueness:
			res = checkLedgerUniqueness(data)
		case CheckImmutability:
			res = checkImmutability(data)
		default:
			return nil, shared.ValidationError{Field: "checks", Reason: fmt.Sprintf("unknown check %q", c)}
		}
		if res.Errors == nil {
			res.Errors = []string{}
		}
		res.OK = len(res.Errors) == 0
		report.OK = report.OK && res.OK
		report.Checks = append(report.Checks, res)
	}

	a.logger.Info("Audit finished", "from", report.From, "to", report.To, "ok", report.OK, "checks", len(report.Checks))
	return report, nil
}

func (a *Auditor) load(ctx context.Context, r shared.DayRange) (*dataset, error) {
	closures, err := a.closures.ListInRange(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list closures: %w", err)
	}
	entries, err := a.ledger.ListByRange(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	counts, err := a.ledger.CountByDayAndType(ctx, []ledger.Type{ledger.TypeWithholdWeekly, ledger.TypeWithholdSeason}, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count withholding entries: %w", err)
	}
	days, err := a.snapshots.ListSnapshotDays(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings snapshots: %w", err)
	}

	data := &dataset{closures: closures, entries: entries, counts: counts, snapshotDays: make(map[string]bool, len(days))}
	for _, d := range days {
		data.snapshotDays[shared.FormatBusinessDay(d)] = true
	}
	sort.Slice(data.closures, func(i, j int) bool { return data.closures[i].BusinessDay.Before(data.closures[j].BusinessDay) })
	return data, nil
}

func checkDayInvariant(data *dataset) CheckResult {
	res := CheckResult{Name: CheckDayInvariant, Details: map[string]any{"days_checked": len(data.closures)}}
	for _, s := range data.closures {
		if s.FundTotal-s.WeeklyAmount-s.SeasonAmount-s.DispatcherAmountTotal != s.FundTotalAfterWithhold {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"%s: fund %d - weekly %d - season %d - dispatcher %d != after withhold %d",
				shared.FormatBusinessDay(s.BusinessDay), s.FundTotal, s.WeeklyAmount, s.SeasonAmount,
				s.DispatcherAmountTotal, s.FundTotalAfterWithhold,
			))
		}
	}
	return res
}

func checkWithholdConsistency(data *dataset) CheckResult {
	var ledgerWeekly, ledgerSeason, reportedWeekly, reportedSeason int64
	for _, e := range data.entries {
		if e.Status == ledger.StatusVoid {
			continue
		}
		switch e.Type {
		case ledger.TypeWithholdWeekly:
			ledgerWeekly += e.Amount
		case ledger.TypeWithholdSeason:
			ledgerSeason += e.Amount
		}
	}
	for _, s := range data.closures {
		reportedWeekly += s.WeeklyAmount
		reportedSeason += s.SeasonAmount
	}

	res := CheckResult{
		Name: CheckWithholdConsistency,
		Details: map[string]any{
			"ledger_weekly":   ledgerWeekly,
			"reported_weekly": reportedWeekly,
			"ledger_season":   ledgerSeason,
			"reported_season": reportedSeason,
		},
	}
	if diff := ledgerWeekly - reportedWeekly; diff != 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("weekly recalculation drift: ledger %d, reported %d, diff %d", ledgerWeekly, reportedWeekly, diff))
	}
	if diff := ledgerSeason - reportedSeason; diff != 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("season recalculation drift: ledger %d, reported %d, diff %d", ledgerSeason, reportedSeason, diff))
	}
	return res
}

func checkLedgerUniqueness(data *dataset) CheckResult {
	res := CheckResult{Name: CheckLedgerUniqueness}
	var duplicates []map[string]any
	for _, c := range data.counts {
		if c.Count <= 1 {
			continue
		}
		day := shared.FormatBusinessDay(c.BusinessDay)
		duplicates = append(duplicates, map[string]any{"business_day": day, "type": string(c.Type), "count": c.Count})
		res.Errors = append(res.Errors, fmt.Sprintf("duplicate %s on %s: %d rows", c.Type, day, c.Count))
	}
	res.Details = map[string]any{"groups_checked": len(data.counts), "duplicates": duplicates}
	return res
}

func checkImmutability(data *dataset) CheckResult {
	res := CheckResult{Name: CheckImmutability, Details: map[string]any{"days_checked": len(data.closures)}}

	byDay := make(map[string][]*ledger.Entry)
	for _, e := range data.entries {
		k := shared.FormatBusinessDay(e.BusinessDay)
		byDay[k] = append(byDay[k], e)
	}

	closed := make(map[string]bool, len(data.closures))
	for _, s := range data.closures {
		day := shared.FormatBusinessDay(s.BusinessDay)
		closed[day] = true

		if !data.snapshotDays[day] {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: closed without a configuration snapshot", day))
		}

		totals, err := aggregate.Fold(byDay[day])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: ledger cannot be folded: %v", day, err))
			continue
		}
		for _, m := range []struct {
			field            string
			stored, computed int64
		}{
			{"collected_total", s.CollectedTotal, totals.CollectedTotal},
			{"collected_cash", s.CollectedCash, totals.CollectedCash},
			{"collected_card", s.CollectedCard, totals.CollectedCard},
			{"refund_total", s.RefundTotal, totals.RefundTotal},
			{"net_total", s.NetTotal, totals.NetTotal},
			{"weekly_amount", s.WeeklyAmount, totals.WithheldWeekly},
			{"season_amount", s.SeasonAmount, totals.WithheldSeason},
		} {
			if m.stored != m.computed {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s snapshot %d, ledger %d", day, m.field, m.stored, m.computed))
			}
		}
	}

	var openDays []string
	for day, entries := range byDay {
		if closed[day] {
			continue
		}
		for _, e := range entries {
			if e.Type.Classify() == ledger.ClassWithhold {
				openDays = append(openDays, day)
				break
			}
		}
	}
	sort.Strings(openDays)
	for _, day := range openDays {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: withholding entries on a day without closure snapshot", day))
	}
	return res
}
