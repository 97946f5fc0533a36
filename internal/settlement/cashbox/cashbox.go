// Package cashbox reconciles the cash that should be in the box at the end of
// a business day against what participants still owe the operator.
package cashbox

import (
	"fmt"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
)

// Result of a reconciliation
type Result struct {
	CashInCashbox          int64            `json:"cash_in_cashbox"`
	ExpectedSellersCashDue int64            `json:"expected_sellers_cash_due"`
	CashDiscrepancy        int64            `json:"cash_discrepancy"`
	Warnings               []shared.Warning `json:"warnings"`
}

// Reconcile derives cashbox figures from the day totals and the per-participant fold.
// A non-zero discrepancy becomes a soft warning and never an error.
func Reconcile(day aggregate.Totals, participants []aggregate.ParticipantRevenue) Result {
	res := Result{
		CashInCashbox: day.NetCash - day.DepositCash - day.SalaryPaidCash,
		Warnings:      []shared.Warning{},
	}

	for _, p := range participants {
		res.ExpectedSellersCashDue += p.CashDueToOwner()
	}

	res.CashDiscrepancy = res.CashInCashbox - res.ExpectedSellersCashDue
	if res.CashDiscrepancy != 0 {
		res.Warnings = append(res.Warnings, shared.Warning{
			Code:   shared.WarningCashDiscrepancy,
			Amount: res.CashDiscrepancy,
			Message: fmt.Sprintf("cash in cashbox %d differs from expected sellers cash due %d by %d",
				res.CashInCashbox, res.ExpectedSellersCashDue, res.CashDiscrepancy),
		})
	}
	return res
}
