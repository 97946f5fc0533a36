package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

type SaleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSaleRepository(logger *slog.Logger, db *persistence.PostgresDB) sale.Repository {
	return &SaleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SaleRepository) WithTx(tx pgx.Tx) sale.Repository {
	return &SaleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert records a sale fact with the rules of sale.Merge: the first event
// sets every field, later events only replace what they actually carry
func (r *SaleRepository) Upsert(ctx context.Context, fact *sale.Fact) error {
	query := `
		INSERT INTO sales (sale_id, participant_id, role, category, zone, payment_day, trip_day, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::date, $6::date), $8)
		ON CONFLICT (sale_id) DO UPDATE
		SET participant_id = COALESCE(NULLIF(EXCLUDED.participant_id, ''), sales.participant_id),
			role = COALESCE(NULLIF(EXCLUDED.role, ''), sales.role),
			category = COALESCE(NULLIF(EXCLUDED.category, ''), sales.category),
			zone = COALESCE(NULLIF(EXCLUDED.zone, ''), sales.zone),
			trip_day = COALESCE($7::date, sales.trip_day),
			updated_at = EXCLUDED.updated_at
	`

	var tripDay *time.Time
	if !fact.TripDay.IsZero() {
		tripDay = &fact.TripDay
	}

	_, err := r.querier.Exec(ctx, query,
		fact.SaleID,
		fact.ParticipantID,
		fact.Role,
		fact.Category,
		fact.Zone,
		fact.PaymentDay,
		tripDay,
		fact.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert sale", "sale_id", fact.SaleID, "error", err)
		return fmt.Errorf("failed to upsert sale: %w", err)
	}

	return nil
}

// ListByIDs returns the known facts for the ids; unknown ids are absent from the map
func (r *SaleRepository) ListByIDs(ctx context.Context, saleIDs []string) (map[string]*sale.Fact, error) {
	facts := make(map[string]*sale.Fact, len(saleIDs))
	if len(saleIDs) == 0 {
		return facts, nil
	}

	query := `
		SELECT sale_id, participant_id, role, category, zone, payment_day, trip_day, updated_at
		FROM sales
		WHERE sale_id = ANY($1)
	`

	rows, err := r.querier.Query(ctx, query, saleIDs)
	if err != nil {
		r.logger.Error("Failed to list sales", "error", err)
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f sale.Fact
		err := rows.Scan(&f.SaleID, &f.ParticipantID, &f.Role, &f.Category, &f.Zone, &f.PaymentDay, &f.TripDay, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		facts[f.SaleID] = &f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over sales: %w", err)
	}

	return facts, nil
}
