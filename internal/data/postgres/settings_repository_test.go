package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
)

func TestSettingsRepository_GetLive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seed := settings.Defaults()
	repo := &SettingsRepository{querier: mock, logger: newTestLogger(), seed: seed}

	t.Run("seed when never saved", func(t *testing.T) {
		mock.ExpectQuery("FROM motivation_settings WHERE id = 1").WillReturnError(pgx.ErrNoRows)

		live, err := repo.GetLive(ctx)
		require.NoError(t, err)
		assert.True(t, seed.Equal(live))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stored row", func(t *testing.T) {
		mock.ExpectQuery("FROM motivation_settings WHERE id = 1").
			WillReturnRows(pgxmock.NewRows([]string{"version", "payload"}).
				AddRow(3, []byte(`{"mode":"team","fund_percent":"0.10"}`)))

		live, err := repo.GetLive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, live.Version)
		assert.Equal(t, settings.ModeTeam, live.Mode)
		assert.True(t, decimal.RequireFromString("0.10").Equal(live.FundPercent))
		assert.True(t, settings.DefaultWeeklyPercent.Equal(live.WeeklyPercent))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettingsRepository_SaveLive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectQuery("INSERT INTO motivation_settings").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(4))

	saved, err := repo.SaveLive(ctx, settings.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_EnsureSnapshot(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}
	live := settings.Defaults()
	live.Version = 7

	t.Run("first access stores live", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO settings_snapshots").
			WithArgs(testDay, 7, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		got, err := repo.EnsureSnapshot(ctx, testDay, live)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing snapshot wins", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO settings_snapshots").
			WithArgs(testDay, 7, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery("FROM settings_snapshots WHERE business_day = \\$1").
			WithArgs(testDay).
			WillReturnRows(pgxmock.NewRows([]string{"version", "payload"}).
				AddRow(5, []byte(`{"mode":"personal","fund_percent":"0.10"}`)))

		got, err := repo.EnsureSnapshot(ctx, testDay, live)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Version)
		assert.Equal(t, settings.ModePersonal, got.Mode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettingsRepository_DeleteSnapshot(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM settings_snapshots").WithArgs(testDay).WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.DeleteSnapshot(ctx, testDay))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM settings_snapshots").WithArgs(testDay).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("FROM settings_snapshots").WithArgs(testDay).WillReturnError(pgx.ErrNoRows)

		err := repo.DeleteSnapshot(ctx, testDay)
		assert.ErrorIs(t, err, settings.ErrSnapshotNotFound{BusinessDay: "2026-07-14"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("closed day", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM settings_snapshots").WithArgs(testDay).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectQuery("FROM settings_snapshots").WithArgs(testDay).
			WillReturnRows(pgxmock.NewRows([]string{"version", "payload"}).AddRow(1, []byte(`{}`)))

		err := repo.DeleteSnapshot(ctx, testDay)
		assert.ErrorIs(t, err, settings.ErrSnapshotInUse{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
