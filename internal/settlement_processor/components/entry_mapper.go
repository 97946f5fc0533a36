package components

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

// saleEventNamespace prefixes event ids that are not UUIDs before hashing
const saleEventNamespace = "sale-event:"

type EntryMapperImpl struct {
	logger *slog.Logger
}

func NewEntryMapper(logger *slog.Logger) service.EntryMapper {
	return &EntryMapperImpl{logger: logger}
}

// EntryID derives the ledger entry id from the collaborator event id, so a
// redelivered event always maps onto the same entry
func EntryID(eventID string) uuid.UUID {
	if id, err := uuid.Parse(eventID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(saleEventNamespace+eventID))
}

// ToEntry posts a sale event on its payment day. Cancellations become a
// negative SALE_CANCEL_REVERSE with the same payment method.
func (m *EntryMapperImpl) ToEntry(event *shared.SaleEvent, paymentDay time.Time) (*ledger.Entry, error) {
	method := ledger.Method(normalizeMethod(event.Method))

	typ, err := entryType(event.Kind, method)
	if err != nil {
		return nil, err
	}

	kind := ledger.KindSellerShift
	if event.Role == shared.RoleDispatcher {
		kind = ledger.KindDispatcherShift
	}

	amount, cash, card := event.Amount, event.CashAmount, event.CardAmount
	if event.Kind == shared.SaleKindCancel {
		amount, cash, card = -amount, -cash, -card
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	entry := &ledger.Entry{
		ID:          EntryID(event.EventID),
		BusinessDay: paymentDay,
		Kind:        kind,
		Type:        typ,
		Method:      method,
		Amount:      amount,
		Status:      ledger.StatusPosted,
		OccurredAt:  occurredAt,
	}
	if method == ledger.MethodMixed {
		entry.WithSplit(cash, card)
	}
	entry.WithParticipant(event.ParticipantID).WithSale(event.SaleID)

	if err := entry.Validate(); err != nil {
		m.logger.Error("Mapped ledger entry is invalid", "event_id", event.EventID, "error", err)
		return nil, err
	}
	return entry, nil
}

func entryType(kind shared.SaleKind, method ledger.Method) (ledger.Type, error) {
	if kind == shared.SaleKindCancel {
		return ledger.TypeSaleCancelReverse, nil
	}

	types := map[shared.SaleKind]map[ledger.Method]ledger.Type{
		shared.SaleKindAccepted: {
			ledger.MethodCash:  ledger.TypeSaleAcceptedCash,
			ledger.MethodCard:  ledger.TypeSaleAcceptedCard,
			ledger.MethodMixed: ledger.TypeSaleAcceptedMixed,
		},
		shared.SaleKindPrepayment: {
			ledger.MethodCash:  ledger.TypeSalePrepaymentCash,
			ledger.MethodCard:  ledger.TypeSalePrepaymentCard,
			ledger.MethodMixed: ledger.TypeSalePrepaymentMixed,
		},
	}
	if typ, ok := types[kind][method]; ok {
		return typ, nil
	}
	return "", shared.ValidationError{Field: "kind", Reason: fmt.Sprintf("no ledger type for %s paid by %s", kind, method)}
}
