package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const migrationsTable = "coldstore_schema_migrations"

var (
	ErrNilDB       = errors.New("migration_db_required")
	ErrDirtySchema = errors.New("migration_schema_dirty")
)

// RunMigrations applies the embedded postgres schema and returns the resulting version.
func RunMigrations(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, ErrNilDB
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	// A dirty schema needs a manual force; re-running Up would fail halfway again.
	if _, dirty, verr := migrator.Version(); verr == nil && dirty {
		return 0, ErrDirtySchema
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	// migrator.Close would close the shared *sql.DB.
	return version, nil
}
