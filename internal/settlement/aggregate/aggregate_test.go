package aggregate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

var today = time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

func entry(t *testing.T, kind ledger.Kind, typ ledger.Type, method ledger.Method, amount int64, participant, saleID string) *ledger.Entry {
	t.Helper()
	e := &ledger.Entry{
		ID:          uuid.New(),
		BusinessDay: today,
		Kind:        kind,
		Type:        typ,
		Method:      method,
		Amount:      amount,
		Status:      ledger.StatusPosted,
		OccurredAt:  today,
	}
	if participant != "" {
		e.WithParticipant(participant)
	}
	if saleID != "" {
		e.WithSale(saleID)
	}
	return e
}

func TestFold(t *testing.T) {
	mixed := entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedMixed, ledger.MethodMixed, 1000, "s-1", "").WithSplit(400, 600)
	void := entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, 99999, "s-1", "")
	void.Status = ledger.StatusVoid

	entries := []*ledger.Entry{
		entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, 5000, "s-1", ""),
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCard, ledger.MethodCard, 3000, "s-1", ""),
		mixed,
		entry(t, ledger.KindSellerShift, ledger.TypeSaleCancelReverse, ledger.MethodCash, -700, "s-1", ""),
		entry(t, ledger.KindDispatcherShift, ledger.TypeSaleCancelReverse, ledger.MethodCard, -200, "d-1", ""),
		entry(t, ledger.KindSellerShift, ledger.TypeDepositToOwnerCash, ledger.MethodCash, 2000, "s-1", ""),
		entry(t, ledger.KindSellerShift, ledger.TypeDepositToOwnerCard, ledger.MethodCard, 500, "s-1", ""),
		entry(t, ledger.KindSellerShift, ledger.TypeSalaryPayoutCash, ledger.MethodCash, 300, "s-1", ""),
		entry(t, ledger.KindSellerShift, ledger.TypeSalaryPayoutCard, ledger.MethodCard, 100, "s-1", ""),
		entry(t, ledger.KindFund, ledger.TypeWithholdWeekly, ledger.MethodInternal, 650, "", ""),
		entry(t, ledger.KindFund, ledger.TypeWithholdSeason, ledger.MethodInternal, 400, "", ""),
		void,
	}

	totals, err := Fold(entries)
	require.NoError(t, err)

	assert.Equal(t, int64(5400), totals.CollectedCash)
	assert.Equal(t, int64(3600), totals.CollectedCard)
	assert.Equal(t, int64(9000), totals.CollectedTotal)
	assert.Equal(t, int64(700), totals.RefundCash)
	assert.Equal(t, int64(200), totals.RefundCard)
	assert.Equal(t, int64(900), totals.RefundTotal)
	assert.Equal(t, int64(4700), totals.NetCash)
	assert.Equal(t, int64(3400), totals.NetCard)
	assert.Equal(t, int64(8100), totals.NetTotal)
	assert.Equal(t, int64(2000), totals.DepositCash)
	assert.Equal(t, int64(500), totals.DepositCard)
	assert.Equal(t, int64(400), totals.SalaryPaidTotal)
	assert.Equal(t, int64(650), totals.WithheldWeekly)
	assert.Equal(t, int64(400), totals.WithheldSeason)
	assert.True(t, totals.Conserved())
}

func TestFold_UnknownTypeFails(t *testing.T) {
	e := entry(t, ledger.KindSellerShift, ledger.Type("SALE_BARTER"), ledger.MethodCash, 10, "s-1", "")
	_, err := Fold([]*ledger.Entry{e})
	assert.ErrorIs(t, err, ledger.ErrUnknownType)
}

func TestFold_Empty(t *testing.T) {
	totals, err := Fold(nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
	assert.True(t, totals.Conserved())
}

func TestConservation_ManyShapes(t *testing.T) {
	methods := []struct {
		typ    ledger.Type
		method ledger.Method
	}{
		{ledger.TypeSaleAcceptedCash, ledger.MethodCash},
		{ledger.TypeSaleAcceptedCard, ledger.MethodCard},
		{ledger.TypeSalePrepaymentCash, ledger.MethodCash},
		{ledger.TypeSaleCancelReverse, ledger.MethodCash},
		{ledger.TypeSaleCancelReverse, ledger.MethodCard},
	}

	var entries []*ledger.Entry
	for i := 1; i <= 40; i++ {
		m := methods[i%len(methods)]
		amount := int64(i * 137)
		if m.typ == ledger.TypeSaleCancelReverse {
			amount = -amount
		}
		entries = append(entries, entry(t, ledger.KindSellerShift, m.typ, m.method, amount, "s-1", ""))

		totals, err := Fold(entries)
		require.NoError(t, err)
		assert.True(t, totals.Conserved(), "after %d entries", i)
	}
}

func TestByParticipant(t *testing.T) {
	facts := map[string]*sale.Fact{
		"sale-1": {SaleID: "sale-1", Category: "speedboat", Zone: "pier"},
		"sale-2": {SaleID: "sale-2", Category: "yacht", Zone: "beach"},
	}
	entries := []*ledger.Entry{
		entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, 5000, "s-1", "sale-1"),
		entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedCard, ledger.MethodCard, 3000, "s-1", "sale-2"),
		entry(t, ledger.KindSellerShift, ledger.TypeSaleCancelReverse, ledger.MethodCash, -1000, "s-1", "sale-1"),
		entry(t, ledger.KindSellerShift, ledger.TypeDepositToOwnerCash, ledger.MethodCash, 6000, "s-1", ""),
		entry(t, ledger.KindDispatcherShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, 700, "d-1", "sale-9"),
		entry(t, ledger.KindFund, ledger.TypeWithholdWeekly, ledger.MethodInternal, 50, "", ""),
	}

	got := ByParticipant(entries, facts)
	require.Len(t, got, 2)

	d := got[0]
	assert.Equal(t, "d-1", d.ParticipantID)
	assert.Equal(t, shared.RoleDispatcher, d.Role)
	assert.Equal(t, int64(700), d.Revenue)
	assert.Equal(t, int64(700), d.RevenueByCategoryZone[CategoryZone{}])
	assert.Equal(t, int64(700), d.CashDueToOwner())

	s := got[1]
	assert.Equal(t, "s-1", s.ParticipantID)
	assert.Equal(t, shared.RoleSeller, s.Role)
	assert.Equal(t, int64(7000), s.Revenue)
	assert.Equal(t, int64(5000), s.CollectedCash)
	assert.Equal(t, int64(1000), s.RefundCash)
	assert.Equal(t, int64(6000), s.DepositCash)
	assert.Equal(t, int64(4000), s.RevenueByCategoryZone[CategoryZone{Category: "speedboat", Zone: "pier"}])
	assert.Equal(t, int64(3000), s.RevenueByCategoryZone[CategoryZone{Category: "yacht", Zone: "beach"}])
	assert.Equal(t, int64(0), s.CashDueToOwner(), "negative balance floors at zero")
}

func TestFutureTripsReserve(t *testing.T) {
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)
	facts := map[string]*sale.Fact{
		"future":  {SaleID: "future", TripDay: tomorrow},
		"sameday": {SaleID: "sameday", TripDay: today},
		"past":    {SaleID: "past", TripDay: yesterday},
	}

	paidEarlier := entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCash, ledger.MethodCash, 9000, "s-1", "future")
	paidEarlier.BusinessDay = yesterday

	entries := []*ledger.Entry{
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCash, ledger.MethodCash, 2000, "s-1", "future"),
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCard, ledger.MethodCard, 1500, "s-1", "future"),
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCash, ledger.MethodCash, 800, "s-1", "sameday"),
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCash, ledger.MethodCash, 300, "s-1", "past"),
		entry(t, ledger.KindSellerShift, ledger.TypeSaleAcceptedCash, ledger.MethodCash, 4000, "s-1", "future"),
		entry(t, ledger.KindSellerShift, ledger.TypeSalePrepaymentCash, ledger.MethodCash, 100, "s-1", "unknown"),
		paidEarlier,
	}

	assert.Equal(t, int64(3500), FutureTripsReserve(entries, facts, today))
}
