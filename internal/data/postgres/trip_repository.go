package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

type TripRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTripRepository(logger *slog.Logger, db *persistence.PostgresDB) trip.Repository {
	return &TripRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TripRepository) WithTx(tx pgx.Tx) trip.Repository {
	return &TripRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *TripRepository) Upsert(ctx context.Context, t *trip.Trip) error {
	query := `
		INSERT INTO trips (trip_id, trip_day, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trip_id) DO UPDATE
		SET trip_day = EXCLUDED.trip_day, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.querier.Exec(ctx, query, t.TripID, t.TripDay, t.Status, t.UpdatedAt); err != nil {
		r.logger.Error("Failed to upsert trip", "trip_id", t.TripID, "error", err)
		return fmt.Errorf("failed to upsert trip: %w", err)
	}
	return nil
}

// CountOpen counts the trips of the day that are still scheduled
func (r *TripRepository) CountOpen(ctx context.Context, day time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM trips
		WHERE trip_day = $1 AND status = $2
	`

	var n int
	if err := r.querier.QueryRow(ctx, query, day, shared.TripStatusScheduled).Scan(&n); err != nil {
		r.logger.Error("Failed to count open trips", "business_day", shared.FormatBusinessDay(day), "error", err)
		return 0, fmt.Errorf("failed to count open trips: %w", err)
	}
	return n, nil
}
