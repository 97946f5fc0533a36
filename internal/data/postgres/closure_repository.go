package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

// ClosureRepository stores closure snapshots as JSONB keyed by business day
type ClosureRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewClosureRepository(logger *slog.Logger, db *persistence.PostgresDB) closure.Repository {
	return &ClosureRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ClosureRepository) WithTx(tx pgx.Tx) closure.Repository {
	return &ClosureRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the snapshot. The primary key on business_day turns a
// second close of the same day into ErrAlreadyClosed.
func (r *ClosureRepository) Create(ctx context.Context, snapshot *closure.Snapshot) error {
	query := `
		INSERT INTO shift_closures (business_day, closed_at, closed_by, payload)
		VALUES ($1, $2, $3, $4)
	`

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode closure snapshot: %w", err)
	}

	day := shared.FormatBusinessDay(snapshot.BusinessDay)
	_, err = r.querier.Exec(ctx, query, snapshot.BusinessDay, snapshot.ClosedAt, snapshot.ClosedBy, payload)
	if err != nil {
		if isUniqueViolation(err) {
			return closure.ErrAlreadyClosed{BusinessDay: day}
		}
		r.logger.Error("Failed to create shift closure", "business_day", day, "error", err)
		return fmt.Errorf("failed to create shift closure: %w", err)
	}

	return nil
}

// GetByBusinessDay returns ErrNotFound while the day is open
func (r *ClosureRepository) GetByBusinessDay(ctx context.Context, day time.Time) (*closure.Snapshot, error) {
	query := `
		SELECT payload
		FROM shift_closures
		WHERE business_day = $1
	`

	var payload []byte
	if err := r.querier.QueryRow(ctx, query, day).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, closure.ErrNotFound{BusinessDay: shared.FormatBusinessDay(day)}
		}
		r.logger.Error("Failed to get shift closure", "business_day", shared.FormatBusinessDay(day), "error", err)
		return nil, fmt.Errorf("failed to get shift closure: %w", err)
	}

	return decodeSnapshot(payload)
}

// ListInRange returns the closed days of the inclusive range in day order
func (r *ClosureRepository) ListInRange(ctx context.Context, from, to time.Time) ([]*closure.Snapshot, error) {
	query := `
		SELECT payload
		FROM shift_closures
		WHERE business_day BETWEEN $1 AND $2
		ORDER BY business_day ASC
	`

	rows, err := r.querier.Query(ctx, query, from, to)
	if err != nil {
		r.logger.Error("Failed to list shift closures", "error", err)
		return nil, fmt.Errorf("failed to list shift closures: %w", err)
	}
	defer rows.Close()

	var snapshots []*closure.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan shift closure: %w", err)
		}
		s, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over shift closures: %w", err)
	}

	return snapshots, nil
}

func decodeSnapshot(payload []byte) (*closure.Snapshot, error) {
	var s closure.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to decode closure snapshot: %w", err)
	}
	return &s, nil
}
