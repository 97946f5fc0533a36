package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/tourdesk-shift-settlement/internal/config"
)

// ErrDirtySchema is returned when a previous migration stopped half way.
// The ledger is not opened until the schema is repaired by hand.
type ErrDirtySchema struct {
	Version uint
}

func (e ErrDirtySchema) Error() string {
	return fmt.Sprintf("ledger schema is dirty at version %d", e.Version)
}

// RunMigrations brings the ledger schema up to date and returns the version
// it ends at
func RunMigrations(logger *slog.Logger, cfg *config.PostgresConfig) (uint, error) {
	switch {
	case cfg.URL == "":
		return 0, errors.New("postgres url is required for migrations")
	case cfg.MigrationsPath == "":
		return 0, errors.New("migrations path is required")
	}

	source := cfg.MigrationsPath
	if !strings.HasPrefix(source, "file://") {
		source = "file://" + source
	}

	m, err := migrate.New(source, cfg.URL)
	if err != nil {
		return 0, fmt.Errorf("failed to open migrations from %s: %w", source, err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to release migration handles", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if version, dirty, err := m.Version(); err == nil && dirty {
		return version, ErrDirtySchema{Version: version}
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply ledger migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Ledger schema ready", "version", version, "source", source)

	return version, nil
}
