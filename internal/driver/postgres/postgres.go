package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidLogTable is returned when the log table cannot be read.
var ErrInvalidLogTable = errors.New("an error has occurred when reading log table")

// DB is a Postgres migration log table. It also runs migration scripts, so it
// can be handed to the engine as the migration context.
type DB struct {
	Pool        *pgxpool.Pool
	SchemaTable string
	LockKey     int64
}

func Connect(ctx context.Context, dsn, schemaTable string, lockKey int64) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db := &DB{Pool: pool, SchemaTable: schemaTable, LockKey: lockKey}
	if err := db.ensureTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() { d.Pool.Close() }

func (d *DB) table() string {
	return pgx.Identifier{d.SchemaTable}.Sanitize()
}

func (d *DB) ensureTables(ctx context.Context) error {
	sql := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    executed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, d.table())
	_, err := d.Pool.Exec(ctx, sql)
	return err
}

// WithAdvisoryLock runs fn while holding a session level advisory lock, so
// that two processes migrating the same database wait for each other.
func (d *DB) WithAdvisoryLock(ctx context.Context, fn func(context.Context) error) error {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", d.LockKey); err != nil {
		return err
	}
	defer conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", d.LockKey) //nolint:errcheck
	return fn(ctx)
}

func (d *DB) LogMigration(ctx context.Context, name string) error {
	_, err := d.Pool.Exec(ctx, fmt.Sprintf("INSERT INTO %s(name) VALUES($1)", d.table()), name)
	if err != nil {
		return fmt.Errorf("failed to log migration %s: %w", name, err)
	}
	return nil
}

// UnlogMigration deletes the most recent row for name.
func (d *DB) UnlogMigration(ctx context.Context, name string) error {
	tag, err := d.Pool.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %[1]s WHERE id = (SELECT max(id) FROM %[1]s WHERE name = $1)", d.table()), name)
	if err != nil {
		return fmt.Errorf("failed to unlog migration %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s is not in the executed log", name)
	}
	return nil
}

func (d *DB) Executed(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.Query(ctx, fmt.Sprintf("SELECT name FROM %s ORDER BY id", d.table()))
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLogTable, err)
	}
	return names, nil
}

// ExecSQL runs a migration script inside its own transaction.
func (d *DB) ExecSQL(ctx context.Context, script string) error {
	return pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, script)
		return err
	})
}
