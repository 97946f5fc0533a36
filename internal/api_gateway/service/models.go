package service

import (
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
)

// Where the figures of a summary or breakdown come from
const (
	SourceLive     = "live"
	SourceSnapshot = "snapshot"
)

// Summary is the cash picture of one business day
type Summary struct {
	BusinessDay string     `json:"business_day"`
	Source      string     `json:"source"`
	IsClosed    bool       `json:"is_closed"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	OpenTrips   int        `json:"open_trips"`

	CollectedTotal int64 `json:"collected_total"`
	CollectedCash  int64 `json:"collected_cash"`
	CollectedCard  int64 `json:"collected_card"`
	RefundTotal    int64 `json:"refund_total"`
	NetTotal       int64 `json:"net_total"`

	CashInCashbox          int64            `json:"cash_in_cashbox"`
	ExpectedSellersCashDue int64            `json:"expected_sellers_cash_due"`
	CashDiscrepancy        int64            `json:"cash_discrepancy"`
	Warnings               []shared.Warning `json:"warnings"`

	SalaryDueTotal     int64 `json:"salary_due_total"`
	FutureTripsReserve int64 `json:"future_trips_reserve"`

	// Ledger holds the full fold of an open day
	Ledger *aggregate.Totals `json:"ledger,omitempty"`
}

// CloseResult is the outcome of a close call
type CloseResult struct {
	Snapshot *closure.Snapshot `json:"snapshot"`
	Created  bool              `json:"created"`
}

// MotivationDay is the points and payout breakdown of one business day
type MotivationDay struct {
	BusinessDay            string                   `json:"business_day"`
	Source                 string                   `json:"source"`
	IsClosed               bool                     `json:"is_closed"`
	Mode                   string                   `json:"mode"`
	SettingsVersion        int                      `json:"settings_version"`
	PointsEnabled          bool                     `json:"points_enabled"`
	RevenueTotal           int64                    `json:"revenue_total"`
	FundTotal              int64                    `json:"fund_total"`
	WeeklyAmount           int64                    `json:"weekly_amount"`
	SeasonAmount           int64                    `json:"season_amount"`
	DispatcherAmountTotal  int64                    `json:"dispatcher_amount_total"`
	FundTotalAfterWithhold int64                    `json:"fund_total_after_withhold"`
	IndividualFund         int64                    `json:"individual_fund"`
	TeamFund               int64                    `json:"team_fund"`
	Participants           []closure.SellerLine     `json:"participants"`
	Dispatchers            []closure.DispatcherLine `json:"dispatchers"`
}

// InvariantsQuery selects the audited range. Exactly one of Day, Week and Season is set.
type InvariantsQuery struct {
	Day    string
	Week   string
	Season string
	Checks string
}

func motivationFromSnapshot(s *closure.Snapshot, source string, closed bool) *MotivationDay {
	return &MotivationDay{
		BusinessDay:            shared.FormatBusinessDay(s.BusinessDay),
		Source:                 source,
		IsClosed:               closed,
		Mode:                   s.Mode,
		SettingsVersion:        s.SettingsVersion,
		PointsEnabled:          s.PointsEnabled,
		RevenueTotal:           s.RevenueTotal,
		FundTotal:              s.FundTotal,
		WeeklyAmount:           s.WeeklyAmount,
		SeasonAmount:           s.SeasonAmount,
		DispatcherAmountTotal:  s.DispatcherAmountTotal,
		FundTotalAfterWithhold: s.FundTotalAfterWithhold,
		IndividualFund:         s.IndividualFund,
		TeamFund:               s.TeamFund,
		Participants:           s.Sellers,
		Dispatchers:            s.Dispatchers,
	}
}
