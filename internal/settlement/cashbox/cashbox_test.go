package cashbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
)

func TestReconcile(t *testing.T) {
	t.Run("Balanced", func(t *testing.T) {
		day := aggregate.Totals{NetCash: 10000, DepositCash: 4000}
		participants := []aggregate.ParticipantRevenue{
			{ParticipantID: "s-1", CollectedCash: 7000, DepositCash: 4000},
			{ParticipantID: "s-2", CollectedCash: 3000},
		}

		res := Reconcile(day, participants)
		assert.Equal(t, int64(6000), res.CashInCashbox)
		assert.Equal(t, int64(6000), res.ExpectedSellersCashDue)
		assert.Equal(t, int64(0), res.CashDiscrepancy)
		assert.Empty(t, res.Warnings)
	})

	t.Run("NegativeBalancesDoNotOffset", func(t *testing.T) {
		day := aggregate.Totals{NetCash: 10000, DepositCash: 9000, SalaryPaidCash: 500}
		participants := []aggregate.ParticipantRevenue{
			{ParticipantID: "s-1", CollectedCash: 2000, DepositCash: 9000},
			{ParticipantID: "s-2", CollectedCash: 8000},
		}

		res := Reconcile(day, participants)
		assert.Equal(t, int64(500), res.CashInCashbox)
		assert.Equal(t, int64(8000), res.ExpectedSellersCashDue)
		assert.Equal(t, int64(-7500), res.CashDiscrepancy)

		require.Len(t, res.Warnings, 1)
		assert.Equal(t, shared.WarningCashDiscrepancy, res.Warnings[0].Code)
		assert.Equal(t, int64(-7500), res.Warnings[0].Amount)
		assert.Contains(t, res.Warnings[0].Message, "-7500")
	})

	t.Run("CashRefundIsReportedAsDiscrepancy", func(t *testing.T) {
		day := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
		entries := []*ledger.Entry{
			sellerEntry(day, ledger.TypeSaleAcceptedCash, 10000),
			sellerEntry(day, ledger.TypeSaleCancelReverse, -3000),
		}

		totals, err := aggregate.Fold(entries)
		require.NoError(t, err)
		res := Reconcile(totals, aggregate.ByParticipant(entries, nil))
		assert.Equal(t, int64(7000), res.CashInCashbox)
		assert.Equal(t, int64(10000), res.ExpectedSellersCashDue)
		assert.Equal(t, int64(-3000), res.CashDiscrepancy)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, int64(-3000), res.Warnings[0].Amount)
	})

	t.Run("EmptyDay", func(t *testing.T) {
		res := Reconcile(aggregate.Totals{}, nil)
		assert.Equal(t, Result{Warnings: []shared.Warning{}}, res)
	})
}

func sellerEntry(day time.Time, typ ledger.Type, amount int64) *ledger.Entry {
	e := &ledger.Entry{
		ID:          uuid.New(),
		BusinessDay: day,
		Kind:        ledger.KindSellerShift,
		Type:        typ,
		Method:      ledger.MethodCash,
		Amount:      amount,
		Status:      ledger.StatusPosted,
		OccurredAt:  day,
	}
	return e.WithParticipant("s-1").WithSale("sale-1")
}
