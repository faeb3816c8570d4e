package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"taskwise/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateURL rewrites a postgres:// connection string to the scheme the
// golang-migrate pgx/v5 driver registers.
func migrateURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}

func (s *Storage) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.connString))
	if err != nil {
		return nil, fmt.Errorf("migrations init: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) error {
	srcErr, dbErr := m.Close()
	return multierr.Combine(srcErr, dbErr)
}

func (s *Storage) Migrate(ctx context.Context) (err error) {
	logger.Info("Repository: Applying migrations")

	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeMigrate(m)) }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Migrations failed", err)
		return fmt.Errorf("migrations up: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.Info("Repository: Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

func (s *Storage) Down(ctx context.Context) (err error) {
	logger.Info("Repository: Rolling back migrations")

	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeMigrate(m)) }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Rollback failed", err)
		return fmt.Errorf("migrations down: %w", err)
	}
	logger.Info("Repository: Migrations rolled back")
	return nil
}
