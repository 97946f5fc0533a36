package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

// MotivationRepository persists one calibration/streak row per participant
type MotivationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewMotivationRepository(logger *slog.Logger, db *persistence.PostgresDB) motivation.Repository {
	return &MotivationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *MotivationRepository) WithTx(tx pgx.Tx) motivation.Repository {
	return &MotivationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetAll returns every known state keyed by participant
func (r *MotivationRepository) GetAll(ctx context.Context) (map[string]motivation.State, error) {
	query := `
		SELECT participant_id, calibrated, calibration_worked_days, calibration_revenue_sum,
			current_level, streak_days, last_eval_day
		FROM motivation_states
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list motivation states", "error", err)
		return nil, fmt.Errorf("failed to list motivation states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]motivation.State)
	for rows.Next() {
		var s motivation.State
		err := rows.Scan(
			&s.ParticipantID,
			&s.Calibrated,
			&s.CalibrationWorkedDays,
			&s.CalibrationRevenueSum,
			&s.CurrentLevel,
			&s.StreakDays,
			&s.LastEvalDay,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan motivation state: %w", err)
		}
		states[s.ParticipantID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over motivation states: %w", err)
	}

	return states, nil
}

// Save upserts the states
func (r *MotivationRepository) Save(ctx context.Context, states []motivation.State) error {
	if len(states) == 0 {
		return nil
	}

	query := `
		INSERT INTO motivation_states (participant_id, calibrated, calibration_worked_days, calibration_revenue_sum,
			current_level, streak_days, last_eval_day, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (participant_id) DO UPDATE
		SET calibrated = EXCLUDED.calibrated,
			calibration_worked_days = EXCLUDED.calibration_worked_days,
			calibration_revenue_sum = EXCLUDED.calibration_revenue_sum,
			current_level = EXCLUDED.current_level,
			streak_days = EXCLUDED.streak_days,
			last_eval_day = EXCLUDED.last_eval_day,
			updated_at = NOW()
	`

	for _, s := range states {
		_, err := r.querier.Exec(ctx, query,
			s.ParticipantID,
			s.Calibrated,
			s.CalibrationWorkedDays,
			s.CalibrationRevenueSum,
			s.CurrentLevel,
			s.StreakDays,
			s.LastEvalDay,
		)
		if err != nil {
			r.logger.Error("Failed to save motivation state", "participant_id", s.ParticipantID, "error", err)
			return fmt.Errorf("failed to save motivation state %s: %w", s.ParticipantID, err)
		}
	}

	return nil
}
