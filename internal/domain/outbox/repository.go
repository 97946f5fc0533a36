package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// Repository stores the reports queued by closing a day until the
// processor has handed them to Kafka.
type Repository interface {
	// Enqueue is called inside the closing transaction
	Enqueue(ctx context.Context, message *Message) error
	// ListPending returns at most limit pending messages, oldest first
	ListPending(ctx context.Context, limit int) ([]*Message, error)
	MarkStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	RecordAttempt(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned when a status or attempt update matches no row
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d does not exist", e.ID)
}
