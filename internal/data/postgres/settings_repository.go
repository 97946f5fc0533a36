package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

// SettingsRepository keeps the live settings in a singleton row and the
// frozen per-day copies in settings_snapshots
type SettingsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	seed    settings.Settings
}

// NewSettingsRepository creates the repository. seed is returned by GetLive
// until the first SaveLive.
func NewSettingsRepository(logger *slog.Logger, db *persistence.PostgresDB, seed settings.Settings) settings.Repository {
	return &SettingsRepository{
		querier: db.Pool(),
		logger:  logger,
		seed:    seed,
	}
}

func (r *SettingsRepository) WithTx(tx pgx.Tx) settings.Repository {
	return &SettingsRepository{
		querier: tx,
		logger:  r.logger,
		seed:    r.seed,
	}
}

func (r *SettingsRepository) GetLive(ctx context.Context) (settings.Settings, error) {
	query := `
		SELECT version, payload
		FROM motivation_settings
		WHERE id = 1
	`

	var version int
	var payload []byte
	if err := r.querier.QueryRow(ctx, query).Scan(&version, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.seed, nil
		}
		r.logger.Error("Failed to get live settings", "error", err)
		return settings.Settings{}, fmt.Errorf("failed to get live settings: %w", err)
	}

	s, err := settings.Decode(payload)
	if err != nil {
		return settings.Settings{}, err
	}
	s.Version = version
	return s, nil
}

// SaveLive normalizes and stores s, bumping the version
func (r *SettingsRepository) SaveLive(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	query := `
		INSERT INTO motivation_settings (id, version, payload, updated_at)
		VALUES (1, 1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET version = motivation_settings.version + 1, payload = EXCLUDED.payload, updated_at = NOW()
		RETURNING version
	`

	s = s.Normalize()
	payload, err := s.Encode()
	if err != nil {
		return settings.Settings{}, err
	}

	if err := r.querier.QueryRow(ctx, query, payload).Scan(&s.Version); err != nil {
		r.logger.Error("Failed to save live settings", "error", err)
		return settings.Settings{}, fmt.Errorf("failed to save live settings: %w", err)
	}
	return s, nil
}

func (r *SettingsRepository) GetSnapshot(ctx context.Context, day time.Time) (settings.Settings, error) {
	query := `
		SELECT version, payload
		FROM settings_snapshots
		WHERE business_day = $1
	`

	var version int
	var payload []byte
	if err := r.querier.QueryRow(ctx, query, day).Scan(&version, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.Settings{}, settings.ErrSnapshotNotFound{BusinessDay: shared.FormatBusinessDay(day)}
		}
		r.logger.Error("Failed to get settings snapshot", "business_day", shared.FormatBusinessDay(day), "error", err)
		return settings.Settings{}, fmt.Errorf("failed to get settings snapshot: %w", err)
	}

	s, err := settings.Decode(payload)
	if err != nil {
		return settings.Settings{}, err
	}
	s.Version = version
	return s, nil
}

// EnsureSnapshot freezes live for the day unless a snapshot already exists
func (r *SettingsRepository) EnsureSnapshot(ctx context.Context, day time.Time, live settings.Settings) (settings.Settings, error) {
	query := `
		INSERT INTO settings_snapshots (business_day, version, payload, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (business_day) DO NOTHING
	`

	payload, err := live.Encode()
	if err != nil {
		return settings.Settings{}, err
	}

	result, err := r.querier.Exec(ctx, query, day, live.Version, payload)
	if err != nil {
		r.logger.Error("Failed to store settings snapshot", "business_day", shared.FormatBusinessDay(day), "error", err)
		return settings.Settings{}, fmt.Errorf("failed to store settings snapshot: %w", err)
	}
	if result.RowsAffected() == 1 {
		return live, nil
	}

	return r.GetSnapshot(ctx, day)
}

// DeleteSnapshot removes a day's snapshot unless the day is already closed
func (r *SettingsRepository) DeleteSnapshot(ctx context.Context, day time.Time) error {
	query := `
		DELETE FROM settings_snapshots s
		WHERE s.business_day = $1
		AND NOT EXISTS (SELECT 1 FROM shift_closures c WHERE c.business_day = s.business_day)
	`

	result, err := r.querier.Exec(ctx, query, day)
	if err != nil {
		r.logger.Error("Failed to delete settings snapshot", "business_day", shared.FormatBusinessDay(day), "error", err)
		return fmt.Errorf("failed to delete settings snapshot: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Nothing deleted: tell a missing snapshot apart from a referenced one
	if _, err := r.GetSnapshot(ctx, day); err != nil {
		return err
	}
	return settings.ErrSnapshotInUse{BusinessDay: shared.FormatBusinessDay(day)}
}

func (r *SettingsRepository) ListSnapshotDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT business_day
		FROM settings_snapshots
		WHERE business_day BETWEEN $1 AND $2
		ORDER BY business_day ASC
	`

	rows, err := r.querier.Query(ctx, query, from, to)
	if err != nil {
		r.logger.Error("Failed to list settings snapshots", "error", err)
		return nil, fmt.Errorf("failed to list settings snapshots: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan settings snapshot day: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over settings snapshots: %w", err)
	}

	return days, nil
}
