// Package closure holds the immutable per-day settlement record. The existence
// of a Snapshot for a business day is the only authority for "the day is closed".
package closure

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Snapshot is written once when a business day closes and never updated
type Snapshot struct {
	BusinessDay time.Time `json:"business_day"`
	ClosedAt    time.Time `json:"closed_at"`
	ClosedBy    string    `json:"closed_by"`

	CollectedTotal int64 `json:"collected_total"`
	CollectedCash  int64 `json:"collected_cash"`
	CollectedCard  int64 `json:"collected_card"`
	RefundTotal    int64 `json:"refund_total"`
	NetTotal       int64 `json:"net_total"`
	SalaryDueTotal int64 `json:"salary_due_total"`

	CashInCashbox          int64            `json:"cash_in_cashbox"`
	ExpectedSellersCashDue int64            `json:"expected_sellers_cash_due"`
	CashDiscrepancy        int64            `json:"cash_discrepancy"`
	Warnings               []shared.Warning `json:"warnings"`

	Mode                   string           `json:"mode"`
	PointsEnabled          bool             `json:"points_enabled"`
	SettingsVersion        int              `json:"settings_version"`
	RevenueTotal           int64            `json:"revenue_total"`
	FundTotal              int64            `json:"fund_total"`
	WeeklyAmount           int64            `json:"weekly_amount"`
	SeasonAmount           int64            `json:"season_amount"`
	DispatcherAmountTotal  int64            `json:"dispatcher_amount_total"`
	FundTotalAfterWithhold int64            `json:"fund_total_after_withhold"`
	IndividualFund         int64            `json:"individual_fund"`
	TeamFund               int64            `json:"team_fund"`
	Dispatchers            []DispatcherLine `json:"dispatchers"`
	Sellers                []SellerLine     `json:"sellers"`
}

// SellerLine is the per-participant part of a closed day
type SellerLine struct {
	ParticipantID    string          `json:"participant_id"`
	Role             shared.Role     `json:"role"`
	Revenue          int64           `json:"revenue"`
	CollectedCash    int64           `json:"collected_cash"`
	DepositCash      int64           `json:"deposit_cash"`
	CashDueToOwner   int64           `json:"cash_due_to_owner"`
	Level            string          `json:"level"`
	StreakDays       int             `json:"streak_days"`
	PointsBase       decimal.Decimal `json:"points_base"`
	StreakMultiplier decimal.Decimal `json:"streak_multiplier"`
	PointsTotal      decimal.Decimal `json:"points_total"`
	Payout           int64           `json:"payout"`
}

// DispatcherLine is one paid dispatcher bonus
type DispatcherLine struct {
	ParticipantID string `json:"participant_id"`
	Revenue       int64  `json:"revenue"`
	Amount        int64  `json:"amount"`
}

// WithheldTotal is the sum of everything taken out of the fund before payouts
func (s *Snapshot) WithheldTotal() int64 {
	return s.WeeklyAmount + s.SeasonAmount + s.DispatcherAmountTotal
}
