// Package aggregate folds ledger entries into the totals every other part of
// the settlement reads. All functions are pure.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Totals is the folded view of a business day or a range of days
type Totals struct {
	CollectedCash  int64 `json:"collected_cash"`
	CollectedCard  int64 `json:"collected_card"`
	CollectedTotal int64 `json:"collected_total"`
	RefundCash     int64 `json:"refund_cash"`
	RefundCard     int64 `json:"refund_card"`
	RefundTotal    int64 `json:"refund_total"`
	NetCash        int64 `json:"net_cash"`
	NetCard        int64 `json:"net_card"`
	NetTotal       int64 `json:"net_total"`

	DepositCash     int64 `json:"deposit_cash"`
	DepositCard     int64 `json:"deposit_card"`
	SalaryPaidCash  int64 `json:"salary_paid_cash"`
	SalaryPaidCard  int64 `json:"salary_paid_card"`
	SalaryPaidTotal int64 `json:"salary_paid_total"`

	WithheldWeekly int64 `json:"withheld_weekly"`
	WithheldSeason int64 `json:"withheld_season"`
}

// Conserved reports whether net totals agree with their parts
func (t Totals) Conserved() bool {
	return t.NetTotal == t.NetCash+t.NetCard && t.NetTotal == t.CollectedTotal-t.RefundTotal
}

// Fold sums entries into Totals. VOID entries are skipped; an entry type the
// switch does not know is an error.
func Fold(entries []*ledger.Entry) (Totals, error) {
	var t Totals
	var reverseCash, reverseCard int64

	for _, e := range entries {
		if e.Status == ledger.StatusVoid {
			continue
		}
		switch e.Type {
		case ledger.TypeSaleAcceptedCash, ledger.TypeSaleAcceptedCard, ledger.TypeSaleAcceptedMixed,
			ledger.TypeSalePrepaymentCash, ledger.TypeSalePrepaymentCard, ledger.TypeSalePrepaymentMixed:
			t.CollectedCash += e.CashPart()
			t.CollectedCard += e.CardPart()
		case ledger.TypeSaleCancelReverse:
			reverseCash += e.CashPart()
			reverseCard += e.CardPart()
		case ledger.TypeDepositToOwnerCash:
			t.DepositCash += e.Amount
		case ledger.TypeDepositToOwnerCard:
			t.DepositCard += e.Amount
		case ledger.TypeSalaryPayoutCash:
			t.SalaryPaidCash += e.Amount
		case ledger.TypeSalaryPayoutCard:
			t.SalaryPaidCard += e.Amount
		case ledger.TypeWithholdWeekly:
			t.WithheldWeekly += e.Amount
		case ledger.TypeWithholdSeason:
			t.WithheldSeason += e.Amount
		default:
			return Totals{}, fmt.Errorf("%w: %q in entry %s", ledger.ErrUnknownType, e.Type, e.ID)
		}
	}

	t.RefundCash = abs(reverseCash)
	t.RefundCard = abs(reverseCard)
	t.CollectedTotal = t.CollectedCash + t.CollectedCard
	t.RefundTotal = t.RefundCash + t.RefundCard
	t.NetCash = t.CollectedCash - t.RefundCash
	t.NetCard = t.CollectedCard - t.RefundCard
	t.NetTotal = t.NetCash + t.NetCard
	t.SalaryPaidTotal = t.SalaryPaidCash + t.SalaryPaidCard
	return t, nil
}

// CategoryZone keys revenue by boat category and the zone the sale was made in
type CategoryZone struct {
	Category string `json:"category"`
	Zone     string `json:"zone"`
}

// ParticipantRevenue is the per-participant fold of one day
type ParticipantRevenue struct {
	ParticipantID         string                 `json:"participant_id"`
	Role                  shared.Role            `json:"role"`
	Revenue               int64                  `json:"revenue"`
	CollectedCash         int64                  `json:"collected_cash"`
	RefundCash            int64                  `json:"refund_cash"`
	DepositCash           int64                  `json:"deposit_cash"`
	RevenueByCategoryZone map[CategoryZone]int64 `json:"-"`
}

// CashDueToOwner is gross collected cash minus cash deposits, floored at zero.
// Cash refunds are not netted here; they surface as a cashbox discrepancy.
func (p ParticipantRevenue) CashDueToOwner() int64 {
	due := p.CollectedCash - p.DepositCash
	if due < 0 {
		return 0
	}
	return due
}

// ByParticipant groups entries per participant. Category and zone come from
// the sale facts; entries whose sale is unknown fall under an empty key.
// Fund entries and entries without a participant are ignored.
func ByParticipant(entries []*ledger.Entry, facts map[string]*sale.Fact) []ParticipantRevenue {
	byID := make(map[string]*ParticipantRevenue)

	for _, e := range entries {
		if e.Status == ledger.StatusVoid || e.Kind == ledger.KindFund || e.ParticipantID == nil {
			continue
		}

		id := *e.ParticipantID
		p, ok := byID[id]
		if !ok {
			p = &ParticipantRevenue{
				ParticipantID:         id,
				Role:                  shared.RoleSeller,
				RevenueByCategoryZone: make(map[CategoryZone]int64),
			}
			byID[id] = p
		}
		if e.Kind == ledger.KindDispatcherShift {
			p.Role = shared.RoleDispatcher
		}

		switch e.Type.Classify() {
		case ledger.ClassSale, ledger.ClassPrepayment:
			p.CollectedCash += e.CashPart()
			p.Revenue += e.Amount
			p.RevenueByCategoryZone[keyFor(e, facts)] += e.Amount
		case ledger.ClassReversal:
			p.RefundCash += -e.CashPart()
			p.Revenue += e.Amount
			p.RevenueByCategoryZone[keyFor(e, facts)] += e.Amount
		case ledger.ClassDeposit:
			if e.Type == ledger.TypeDepositToOwnerCash {
				p.DepositCash += e.Amount
			}
		}
	}

	out := make([]ParticipantRevenue, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

// FutureTripsReserve sums prepayments received on day for trips after day.
// Prepayments whose sale fact is missing are not reserved.
func FutureTripsReserve(entries []*ledger.Entry, facts map[string]*sale.Fact, day time.Time) int64 {
	var reserve int64
	for _, e := range entries {
		if e.Status == ledger.StatusVoid || e.Type.Classify() != ledger.ClassPrepayment {
			continue
		}
		if !e.BusinessDay.Equal(day) || e.SourceSaleID == nil {
			continue
		}
		f, ok := facts[*e.SourceSaleID]
		if !ok || !f.TripDay.After(day) {
			continue
		}
		reserve += e.Amount
	}
	return reserve
}

func keyFor(e *ledger.Entry, facts map[string]*sale.Fact) CategoryZone {
	if e.SourceSaleID == nil {
		return CategoryZone{}
	}
	if f, ok := facts[*e.SourceSaleID]; ok {
		return CategoryZone{Category: f.Category, Zone: f.Zone}
	}
	return CategoryZone{}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
