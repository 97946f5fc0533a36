package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

const (
	insertOutboxSQL = `
		INSERT INTO shift_outbox (business_day, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	// id is a BIGSERIAL, so ordering by it is commit order for a single writer
	listPendingOutboxSQL = `
		SELECT id, business_day, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM shift_outbox WHERE status = $1
		ORDER BY id
		LIMIT $2`

	markOutboxStatusSQL = `
		UPDATE shift_outbox SET status = $1, last_attempt_at = $2
		WHERE id = $3`

	recordOutboxAttemptSQL = `
		UPDATE shift_outbox SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2`
)

// OutboxRepository keeps the queue of closed-day reports in shift_outbox
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{querier: db.Pool(), logger: logger}
}

// WithTx binds the repository to the closing transaction so the report is
// enqueued atomically with the snapshot
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{querier: tx, logger: r.logger}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx, insertOutboxSQL,
		message.BusinessDay,
		message.EventType,
		[]byte(message.Payload),
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		day := shared.FormatBusinessDay(message.BusinessDay)
		r.logger.Error("Failed to enqueue report", "business_day", day, "error", err)
		return fmt.Errorf("failed to enqueue report of %s: %w", day, err)
	}
	return nil
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, listPendingOutboxSQL, shared.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, scanOutboxMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func scanOutboxMessage(row pgx.CollectableRow) (*outbox.Message, error) {
	var (
		message outbox.Message
		payload []byte
	)
	err := row.Scan(
		&message.ID,
		&message.BusinessDay,
		&message.EventType,
		&payload,
		&message.Status,
		&message.Attempts,
		&message.CreatedAt,
		&message.LastAttemptAt,
	)
	if err != nil {
		return nil, err
	}
	message.Payload = payload
	return &message, nil
}

func (r *OutboxRepository) MarkStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.touch(ctx, id, "mark "+string(status), markOutboxStatusSQL, status, time.Now().UTC(), id)
}

func (r *OutboxRepository) RecordAttempt(ctx context.Context, id int64) error {
	return r.touch(ctx, id, "record attempt", recordOutboxAttemptSQL, time.Now().UTC(), id)
}

// touch runs a single-row update and reports a missing row as ErrMessageNotFound
func (r *OutboxRepository) touch(ctx context.Context, id int64, action, query string, args ...any) error {
	tag, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Outbox update failed", "id", id, "action", action, "error", err)
		return fmt.Errorf("failed to %s on outbox message %d: %w", action, id, err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}
