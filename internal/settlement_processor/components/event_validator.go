package components

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement_processor/service"
)

type EventValidatorImpl struct {
	logger *slog.Logger
}

func NewEventValidator(logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{logger: logger}
}

// Validate checks an envelope before anything is read or written
func (v *EventValidatorImpl) Validate(envelope *shared.Envelope) error {
	if envelope == nil {
		return shared.ValidationError{Field: "envelope", Reason: "is empty"}
	}
	switch envelope.Type {
	case shared.EventTypeSale:
		if envelope.Sale == nil {
			return shared.ValidationError{Field: "sale", Reason: "is required for SALE events"}
		}
		return v.validateSale(envelope.Sale)
	case shared.EventTypeTrip:
		if envelope.Trip == nil {
			return shared.ValidationError{Field: "trip", Reason: "is required for TRIP events"}
		}
		return v.validateTrip(envelope.Trip)
	default:
		return shared.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", envelope.Type)}
	}
}

func (v *EventValidatorImpl) validateSale(event *shared.SaleEvent) error {
	required := []struct{ field, value string }{
		{"event_id", event.EventID},
		{"sale_id", event.SaleID},
		{"participant_id", event.ParticipantID},
		{"payment_day", event.PaymentDay},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return shared.ValidationError{Field: r.field, Reason: "is required"}
		}
	}

	switch event.Role {
	case shared.RoleSeller, shared.RoleDispatcher:
	default:
		return shared.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", event.Role)}
	}
	switch event.Kind {
	case shared.SaleKindAccepted, shared.SaleKindPrepayment, shared.SaleKindCancel:
	default:
		return shared.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown sale kind %q", event.Kind)}
	}
	if event.Amount <= 0 {
		return shared.ValidationError{Field: "amount", Reason: "must be greater than 0"}
	}

	switch normalizeMethod(event.Method) {
	case "CASH", "CARD":
	case "MIXED":
		if event.CashAmount < 0 || event.CardAmount < 0 {
			return shared.ValidationError{Field: "cash_amount", Reason: "mixed parts must not be negative"}
		}
		if event.CashAmount+event.CardAmount != event.Amount {
			return shared.ValidationError{Field: "cash_amount", Reason: "cash and card parts must add up to the amount"}
		}
	default:
		return shared.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown payment method %q", event.Method)}
	}

	if _, err := shared.ParseBusinessDay(event.PaymentDay); err != nil {
		return err
	}
	if event.TripDay != "" {
		if _, err := shared.ParseBusinessDay(event.TripDay); err != nil {
			return err
		}
	}
	return nil
}

func (v *EventValidatorImpl) validateTrip(event *shared.TripEvent) error {
	if strings.TrimSpace(event.TripID) == "" {
		return shared.ValidationError{Field: "trip_id", Reason: "is required"}
	}
	switch event.Status {
	case shared.TripStatusScheduled, shared.TripStatusCompleted, shared.TripStatusCancelled:
	default:
		return shared.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown trip status %q", event.Status)}
	}
	if _, err := shared.ParseBusinessDay(event.TripDay); err != nil {
		return err
	}
	return nil
}

func normalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
