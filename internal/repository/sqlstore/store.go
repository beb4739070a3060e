// Package sqlstore implements the repository interfaces over database/sql
// through sqlx.
//
// Two dialects are supported with the same SQL text:
//   - SQLite (modernc.org/sqlite, pure Go) for development and tests
//   - PostgreSQL (lib/pq) for production
//
// Queries are written with "?" placeholders and passed through Rebind, which
// turns them into $1, $2, ... for PostgreSQL. Both engines understand
// INSERT ... ON CONFLICT ... DO UPDATE ... RETURNING, which the collection
// upsert and the insert paths rely on.
package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/momo-server/internal/repository"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	_ repository.UserRepository         = (*Store)(nil)
	_ repository.OAuthAccountRepository = (*Store)(nil)
	_ repository.CollectionRepository   = (*Store)(nil)
)

// Store wraps a sqlx connection pool and implements every repository.
type Store struct {
	db *sqlx.DB
}

// Open connects to the given driver and brings the schema up to date.
// For sqlite the dsn is a file path or ":memory:"; for postgres it is a
// postgres:// URL.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withinTx runs fn in a transaction. fn's error rolls everything back;
// a nil return commits.
func (s *Store) withinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
