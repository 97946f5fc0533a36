package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// SettingsServiceImpl implements the SettingsService interface
type SettingsServiceImpl struct {
	settingsRepo settings.Repository
	logger       *slog.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(logger *slog.Logger, settingsRepo settings.Repository) SettingsService {
	return &SettingsServiceImpl{
		settingsRepo: settingsRepo,
		logger:       logger.With("component", "settings_service"),
	}
}

func (s *SettingsServiceImpl) GetLive(ctx context.Context) (settings.Settings, error) {
	return s.settingsRepo.GetLive(ctx)
}

func (s *SettingsServiceImpl) GetSnapshot(ctx context.Context, day time.Time) (settings.Settings, error) {
	return s.settingsRepo.GetSnapshot(ctx, shared.NormalizeDay(day))
}

// UpdateLive stores the normalized configuration; out of range values are clamped, not rejected
func (s *SettingsServiceImpl) UpdateLive(ctx context.Context, cfg settings.Settings) (settings.Settings, error) {
	saved, err := s.settingsRepo.SaveLive(ctx, cfg.Normalize())
	if err != nil {
		return settings.Settings{}, err
	}
	s.logger.Info("Live settings updated", "version", saved.Version, "mode", saved.Mode)
	return saved, nil
}

func (s *SettingsServiceImpl) DeleteSnapshot(ctx context.Context, day time.Time) error {
	day = shared.NormalizeDay(day)
	if err := s.settingsRepo.DeleteSnapshot(ctx, day); err != nil {
		return err
	}
	s.logger.Info("Settings snapshot deleted", "business_day", shared.FormatBusinessDay(day))
	return nil
}
