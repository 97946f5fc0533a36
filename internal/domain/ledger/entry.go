// Package ledger defines the append-only money ledger of the settlement system.
// Entries are never mutated or deleted; corrections are new entries with the
// opposite sign.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind tells which shift (or the fund) an entry belongs to
type Kind string

const (
	KindSellerShift     Kind = "SELLER_SHIFT"
	KindDispatcherShift Kind = "DISPATCHER_SHIFT"
	KindFund            Kind = "FUND"
)

// Method is the payment method of an entry
type Method string

const (
	MethodCash     Method = "CASH"
	MethodCard     Method = "CARD"
	MethodMixed    Method = "MIXED"
	MethodInternal Method = "INTERNAL"
)

// Status of a posted entry
type Status string

const (
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Type is the monetary event an entry records
type Type string

const (
	TypeSaleAcceptedCash    Type = "SALE_ACCEPTED_CASH"
	TypeSaleAcceptedCard    Type = "SALE_ACCEPTED_CARD"
	TypeSaleAcceptedMixed   Type = "SALE_ACCEPTED_MIXED"
	TypeSalePrepaymentCash  Type = "SALE_PREPAYMENT_CASH"
	TypeSalePrepaymentCard  Type = "SALE_PREPAYMENT_CARD"
	TypeSalePrepaymentMixed Type = "SALE_PREPAYMENT_MIXED"
	TypeSaleCancelReverse   Type = "SALE_CANCEL_REVERSE"
	TypeDepositToOwnerCash  Type = "DEPOSIT_TO_OWNER_CASH"
	TypeDepositToOwnerCard  Type = "DEPOSIT_TO_OWNER_CARD"
	TypeSalaryPayoutCash    Type = "SALARY_PAYOUT_CASH"
	TypeSalaryPayoutCard    Type = "SALARY_PAYOUT_CARD"
	TypeWithholdWeekly      Type = "WITHHOLD_WEEKLY"
	TypeWithholdSeason      Type = "WITHHOLD_SEASON"
)

// Class groups entry types by how the aggregator treats them
type Class int

const (
	ClassUnknown Class = iota
	ClassSale
	ClassPrepayment
	ClassReversal
	ClassDeposit
	ClassSalary
	ClassWithhold
)

// Classify maps every entry type onto its class. Adding a Type without
// extending this switch makes NewEntry reject it.
func (t Type) Classify() Class {
	switch t {
	case TypeSaleAcceptedCash, TypeSaleAcceptedCard, TypeSaleAcceptedMixed:
		return ClassSale
	case TypeSalePrepaymentCash, TypeSalePrepaymentCard, TypeSalePrepaymentMixed:
		return ClassPrepayment
	case TypeSaleCancelReverse:
		return ClassReversal
	case TypeDepositToOwnerCash, TypeDepositToOwnerCard:
		return ClassDeposit
	case TypeSalaryPayoutCash, TypeSalaryPayoutCard:
		return ClassSalary
	case TypeWithholdWeekly, TypeWithholdSeason:
		return ClassWithhold
	default:
		return ClassUnknown
	}
}

// IsSale reports whether the type counts as revenue (acceptance, prepayment or its reversal)
func (t Type) IsSale() bool {
	return strings.HasPrefix(string(t), "SALE_")
}

var (
	ErrZeroAmount    = errors.New("ledger entry amount must not be zero")
	ErrUnknownType   = errors.New("unknown ledger entry type")
	ErrUnknownKind   = errors.New("unknown ledger entry kind")
	ErrUnknownMethod = errors.New("unknown ledger entry method")
	ErrMixedSplit    = errors.New("mixed entry cash and card parts must add up to the amount")
)

// Entry is one immutable monetary event.
// BusinessDay is the payment date for SALE_* entries; the trip date of the
// underlying sale lives with the sale facts and is never stored here.
type Entry struct {
	ID            uuid.UUID `json:"id" bson:"id"`
	BusinessDay   time.Time `json:"business_day" bson:"business_day"`
	Kind          Kind      `json:"kind" bson:"kind"`
	Type          Type      `json:"type" bson:"type"`
	Method        Method    `json:"method" bson:"method"`
	Amount        int64     `json:"amount" bson:"amount"` // minor units, signed
	CashAmount    int64     `json:"cash_amount,omitempty" bson:"cash_amount,omitempty"`
	CardAmount    int64     `json:"card_amount,omitempty" bson:"card_amount,omitempty"`
	Status        Status    `json:"status" bson:"status"`
	ParticipantID *string   `json:"participant_id,omitempty" bson:"participant_id,omitempty"`
	SourceSaleID  *string   `json:"source_sale_id,omitempty" bson:"source_sale_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at" bson:"occurred_at"`
}

// NewEntry builds a POSTED entry after validating its discriminants and amount
func NewEntry(id uuid.UUID, day time.Time, kind Kind, typ Type, method Method, amount int64, occurredAt time.Time) (*Entry, error) {
	e := &Entry{
		ID:          id,
		BusinessDay: day,
		Kind:        kind,
		Type:        typ,
		Method:      method,
		Amount:      amount,
		Status:      StatusPosted,
		OccurredAt:  occurredAt,
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// WithParticipant attaches the participant the money is attributed to
func (e *Entry) WithParticipant(participantID string) *Entry {
	e.ParticipantID = &participantID
	return e
}

// WithSale links the entry to the sale it was posted for
func (e *Entry) WithSale(saleID string) *Entry {
	e.SourceSaleID = &saleID
	return e
}

// WithSplit sets the cash and card parts of a MIXED entry
func (e *Entry) WithSplit(cash, card int64) *Entry {
	e.CashAmount = cash
	e.CardAmount = card
	return e
}

// Validate checks the entry before it is appended
func (e *Entry) Validate() error {
	if e.Amount == 0 {
		return ErrZeroAmount
	}
	switch e.Kind {
	case KindSellerShift, KindDispatcherShift, KindFund:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	switch e.Method {
	case MethodCash, MethodCard, MethodMixed, MethodInternal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, e.Method)
	}
	if e.Type.Classify() == ClassUnknown {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if e.Method == MethodMixed && e.CashAmount+e.CardAmount != e.Amount {
		return ErrMixedSplit
	}
	if e.Status == "" {
		e.Status = StatusPosted
	}
	return nil
}

// CashPart returns the share of the amount that moved as cash
func (e *Entry) CashPart() int64 {
	switch e.Method {
	case MethodCash:
		return e.Amount
	case MethodMixed:
		return e.CashAmount
	default:
		return 0
	}
}

// CardPart returns the share of the amount that moved by card
func (e *Entry) CardPart() int64 {
	switch e.Method {
	case MethodCard:
		return e.Amount
	case MethodMixed:
		return e.CardAmount
	default:
		return 0
	}
}

// Participant returns the participant id or an empty string for fund entries
func (e *Entry) Participant() string {
	if e.ParticipantID == nil {
		return ""
	}
	return *e.ParticipantID
}
