package shared

import (
	"errors"
	"fmt"
)

// ErrShiftClosed rejects any mutation that targets an already closed business day
var ErrShiftClosed = errors.New("SHIFT_CLOSED: business day is already closed")

// Warning codes reported next to a successful close
const (
	WarningCashDiscrepancy = "CASH_DISCREPANCY"
)

// ValidationError indicates malformed input; nothing was changed
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target has no field set
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// GatingError indicates operational preconditions are not met yet.
// It is retryable once the blocking trips are completed.
type GatingError struct {
	BusinessDay string
	OpenTrips   int
}

func (e GatingError) Error() string {
	return fmt.Sprintf("business day %s has %d open trip(s)", e.BusinessDay, e.OpenTrips)
}

// Is matches any GatingError
func (e GatingError) Is(target error) bool {
	_, ok := target.(GatingError)
	return ok
}

// Warning is a soft, non-blocking finding reported alongside a result
type Warning struct {
	Code    string `json:"code"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}
