package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// Registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"
)

// OpenPostgres connects to PostgreSQL and runs pending migrations.
// databaseURL must be a postgres:// URL; golang-migrate uses it too.
func OpenPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(DriverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// RunPostgresMigrations applies every embedded postgres migration.
// It returns nil when the schema is already current.
func RunPostgresMigrations(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("sqlstore: creating migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("sqlstore: creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: running migrations: %w", err)
	}
	return nil
}
