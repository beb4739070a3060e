package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// sqliteParams are applied by the driver to every new connection, so each
// pooled connection gets the same settings.
//
//   - foreign_keys: off by default in SQLite
//   - journal_mode=WAL: readers do not block the writer
//   - busy_timeout: wait for the write lock instead of failing at once
//   - _txlock=immediate: take the write lock at BEGIN so two writers cannot
//     deadlock upgrading from a read lock
const sqliteParams = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// OpenSQLite opens (creating if needed) a SQLite database and applies the
// embedded schema.
//
// dbPath examples:
//   - "data/momo.db" → file-based database
//   - ":memory:"     → in-memory database, gone on Close
func OpenSQLite(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlx.Open(DriverSQLite, dbPath+"?"+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening sqlite: %w", err)
	}

	// Every connection to ":memory:" is a separate empty database, so the
	// pool must never hold more than one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging sqlite: %w", err)
	}

	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: migrating sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// migrateSQLite executes every embedded *.up.sql file in name order. The
// statements are idempotent (IF NOT EXISTS), so running them on an existing
// database is a no-op.
func migrateSQLite(ctx context.Context, db *sqlx.DB) error {
	const dir = "migrations/sqlite"

	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(migrationsFS, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
	}
	return nil
}
