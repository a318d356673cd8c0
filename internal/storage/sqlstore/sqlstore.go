// Package sqlstore keeps the executed migration log in a table reached
// through database/sql. SQLite and MySQL are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrInvalidLogTable is returned when the log table cannot be read.
var ErrInvalidLogTable = errors.New("an error has occurred when reading log table")

// Store is a migration log table. It also runs migration scripts against the
// same database, so it can be passed to the engine as the migration context.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	owned   bool
}

// Open connects to the database and makes sure the log table exists.
func Open(ctx context.Context, driver, dsn, table string) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	dsn, err = dialect.PrepareDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening %s database: %w", driver, err)
	}
	if _, ok := dialect.(SQLite); ok && (strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")) {
		// every connection to an in-memory database is a distinct database
		db.SetMaxOpenConns(1)
	}

	store, err := New(ctx, db, dialect, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*Store, error) {
	s := &Store{db: db, dialect: dialect, table: dialect.QuoteIdent(table)}
	if _, err := db.ExecContext(ctx, dialect.CreateTableSQL(s.table)); err != nil {
		return nil, fmt.Errorf("failed to create migrations table %s: %w", s.table, err)
	}
	return s, nil
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) LogMigration(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", s.table), name)
	if err != nil {
		return fmt.Errorf("failed to log migration %s: %w", name, err)
	}
	return nil
}

// UnlogMigration deletes the most recent row for name.
func (s *Store) UnlogMigration(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to unlog migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	var id sql.NullInt64
	err = tx.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(id) FROM %s WHERE name = ?", s.table), name).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to unlog migration %s: %w", name, err)
	}
	if !id.Valid {
		return fmt.Errorf("migration %s is not in the executed log", name)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table), id.Int64); err != nil {
		return fmt.Errorf("failed to unlog migration %s: %w", name, err)
	}
	return tx.Commit()
}

func (s *Store) Executed(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT name FROM %s ORDER BY id", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to list executed migrations: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidLogTable, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLogTable, err)
	}
	return names, nil
}

// ExecSQL runs a migration script.
func (s *Store) ExecSQL(ctx context.Context, script string) error {
	_, err := s.db.ExecContext(ctx, script)
	return err
}
