package postgres

import (
	"log/slog"

	"github.com/tourdesk-shift-settlement/internal/domain/closure"
	"github.com/tourdesk-shift-settlement/internal/domain/ledger"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/outbox"
	"github.com/tourdesk-shift-settlement/internal/domain/sale"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/trip"
	"github.com/tourdesk-shift-settlement/internal/platform/persistence"
)

// Repositories bundles every pool-bound repository of the service
type Repositories struct {
	Ledger     ledger.Repository
	Closures   closure.Repository
	Settings   settings.Repository
	Motivation motivation.Repository
	Sales      sale.Repository
	Trips      trip.Repository
	Outbox     outbox.Repository
}

// NewRepositories wires all repositories to the pool. seed backs the live
// settings until they are first saved.
func NewRepositories(logger *slog.Logger, db *persistence.PostgresDB, seed settings.Settings) *Repositories {
	return &Repositories{
		Ledger:     NewLedgerRepository(logger, db),
		Closures:   NewClosureRepository(logger, db),
		Settings:   NewSettingsRepository(logger, db, seed),
		Motivation: NewMotivationRepository(logger, db),
		Sales:      NewSaleRepository(logger, db),
		Trips:      NewTripRepository(logger, db),
		Outbox:     NewOutboxRepository(logger, db),
	}
}
