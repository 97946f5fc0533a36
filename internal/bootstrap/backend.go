// Package bootstrap wires the storage and settlement components behind the
// shift and settings services shared by the HTTP gateway and settlementctl.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tourdesk-shift-settlement/internal/api_gateway/service"
	"github.com/tourdesk-shift-settlement/internal/config"
	"github.com/tourdesk-shift-settlement/internal/data/mongo"
	"github.com/tourdesk-shift-settlement/internal/data/postgres"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/platform/metrics"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
	"github.com/tourdesk-shift-settlement/internal/settlement/audit"
	"github.com/tourdesk-shift-settlement/internal/settlement/closer"
)

// Backend holds the services and the connections they run on
type Backend struct {
	Shifts   service.ShiftService
	Settings service.SettingsService
	Metrics  *metrics.Metrics

	postgresDB *persistence.PostgresDB
	mongoDB    *persistence.MongoDB
}

// SeedSettings maps the configured motivation defaults onto the live settings seed
func SeedSettings(cfg *config.MotivationConfig) settings.Settings {
	return settings.Seed(
		cfg.Mode,
		cfg.FundPercent,
		cfg.IndividualShare,
		cfg.TeamShare,
		cfg.WeeklyPercent,
		cfg.SeasonPercent,
		cfg.DispatcherPercentTotal,
	)
}

// NewBackend connects to PostgreSQL (applying migrations) and MongoDB and
// builds the services on top of them
func NewBackend(ctx context.Context, log *slog.Logger, cfg *config.Config, m *metrics.Metrics) (*Backend, error) {
	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		postgresDB.Close()
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}

	repos := postgres.NewRepositories(log, postgresDB, SeedSettings(&cfg.Motivation))
	store := postgres.NewSettlementStore(log, postgresDB, repos)
	reports := mongo.NewReportRepository(log, mongoDB.Database())

	shiftCloser := closer.New(store, m, log.With("component", "closer"))
	deposits := closer.NewDeposits(store, log.With("component", "deposits"))
	auditor := audit.NewAuditor(repos.Closures, repos.Ledger, repos.Settings, log.With("component", "audit"))

	shifts := service.NewShiftService(log, shiftCloser, deposits, auditor, service.Stores{
		Ledger:     repos.Ledger,
		Closures:   repos.Closures,
		Settings:   repos.Settings,
		Motivation: repos.Motivation,
		Sales:      repos.Sales,
		Trips:      repos.Trips,
		Reports:    reports,
	})

	return &Backend{
		Shifts:     shifts,
		Settings:   service.NewSettingsService(log, repos.Settings),
		Metrics:    m,
		postgresDB: postgresDB,
		mongoDB:    mongoDB,
	}, nil
}

// Close releases the database connections
func (b *Backend) Close(ctx context.Context) error {
	b.postgresDB.Close()
	return b.mongoDB.Close(ctx)
}
