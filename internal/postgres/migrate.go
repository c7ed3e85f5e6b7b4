package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. Accepts a plain postgres:// DSN and
// rewrites it to the pgx5 scheme golang-migrate expects.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrateDSN(dsn))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateDSN rewrites a postgres:// DSN into the pgx5:// form golang-migrate
// expects for its pgx/v5 driver.
func MigrateDSN(dsn string) string {
	const plain = "postgres://"
	if len(dsn) > len(plain) && dsn[:len(plain)] == plain {
		return "pgx5://" + dsn[len(plain):]
	}
	return dsn
}
