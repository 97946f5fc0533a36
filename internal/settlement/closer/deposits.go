package closer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// DepositRequest is an owner deposit or a salary payout made during a shift
type DepositRequest struct {
	BusinessDay   time.Time
	Type          ledger.Type
	ParticipantID string
	Role          shared.Role
	Amount        int64
}

// Validate rejects malformed requests before anything is read or written
func (r DepositRequest) Validate() error {
	switch r.Type.Classify() {
	case ledger.ClassDeposit, ledger.ClassSalary:
	default:
		return shared.ValidationError{Field: "type", Reason: fmt.Sprintf("%q is not a deposit or salary payout type", r.Type)}
	}
	if r.Amount <= 0 {
		return shared.ValidationError{Field: "amount", Reason: "must be greater than 0"}
	}
	if r.ParticipantID == "" {
		return shared.ValidationError{Field: "participant_id", Reason: "is required"}
	}
	switch r.Role {
	case "", shared.RoleSeller, shared.RoleDispatcher:
	default:
		return shared.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", r.Role)}
	}
	return nil
}

func (r DepositRequest) method() ledger.Method {
	switch r.Type {
	case ledger.TypeDepositToOwnerCash, ledger.TypeSalaryPayoutCash:
		return ledger.MethodCash
	default:
		return ledger.MethodCard
	}
}

func (r DepositRequest) kind() ledger.Kind {
	if r.Role == shared.RoleDispatcher {
		return ledger.KindDispatcherShift
	}
	return ledger.KindSellerShift
}

// Deposits appends owner deposits and salary payouts to open days
type Deposits struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewDeposits(store Store, logger *slog.Logger) *Deposits {
	return &Deposits{
		store:  store,
		logger: logger.With("component", "deposits"),
		now:    time.Now,
	}
}

// Post appends the entry under a shared per-day lock so it cannot land
// between a close's read of the ledger and its commit
func (d *Deposits) Post(ctx context.Context, req DepositRequest) (*ledger.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	day := shared.NormalizeDay(req.BusinessDay)

	var posted *ledger.Entry
	err := d.store.RunInTx(ctx, func(tx Tx) error {
		if err := tx.LockDayShared(ctx, day); err != nil {
			return fmt.Errorf("failed to lock business day: %w", err)
		}

		_, err := tx.GetClosure(ctx, day)
		switch {
		case err == nil:
			return shared.ErrShiftClosed
		case !errors.Is(err, closure.ErrNotFound{}):
			return fmt.Errorf("failed to read closure snapshot: %w", err)
		}

		open, err := tx.CountOpenTrips(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to count open trips: %w", err)
		}
		if open > 0 {
			return shared.GatingError{BusinessDay: shared.FormatBusinessDay(day), OpenTrips: open}
		}

		entry, err := ledger.NewEntry(uuid.New(), day, req.kind(), req.Type, req.method(), req.Amount, d.now().UTC())
		if err != nil {
			return err
		}
		entry.WithParticipant(req.ParticipantID)

		if err := tx.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append deposit: %w", err)
		}
		posted = entry
		return nil
	})
	if err != nil {
		d.logger.Warn("Deposit rejected",
			"business_day", shared.FormatBusinessDay(day),
			"type", string(req.Type),
			"participant_id", req.ParticipantID,
			"error", err,
		)
		return nil, err
	}

	d.logger.Info("Deposit posted",
		"business_day", shared.FormatBusinessDay(day),
		"type", string(req.Type),
		"participant_id", req.ParticipantID,
		"amount", req.Amount,
		"entry_id", posted.ID.String(),
	)
	return posted, nil
}
