// Package migrator provides the public API for running migrations.
package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"

	icfg "migrator/internal/config"
	ipg "migrator/internal/driver/postgres"
	im "migrator/internal/migrator"
	"migrator/internal/source/sqlfile"
	"migrator/internal/storage/file"
	"migrator/internal/storage/sqlstore"
)

// Option configures a single API call.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  Hooks
}

// WithLogger sets the logger the engine reports progress to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHooks sets callbacks invoked around every executed migration.
func WithHooks(hooks Hooks) Option {
	return func(o *options) { o.hooks = hooks }
}

// session is an engine bound to the storage chosen by the configuration.
type session struct {
	engine *im.Engine
	lock   func(ctx context.Context, fn func(context.Context) error) error
	close  func()
}

func noLock(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

func open(ctx context.Context, c icfg.Config, opts []Option) (*session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var source im.Source
	switch c.Kind {
	case "sql":
		source = sqlfile.NewDir(c.Path)
	case "go":
		source = goReg
	default:
		return nil, fmt.Errorf("unknown kind: %s", c.Kind)
	}

	s := &session{lock: noLock, close: func() {}}
	var (
		storage im.Storage
		mctx    any
	)
	switch c.Driver {
	case "", "postgres":
		db, err := ipg.Connect(ctx, c.DSN, c.SchemaTable, c.LockKey)
		if err != nil {
			return nil, err
		}
		storage, mctx = db, db
		s.lock, s.close = db.WithAdvisoryLock, db.Close
	case "sqlite", "mysql":
		store, err := sqlstore.Open(ctx, c.Driver, c.DSN, c.SchemaTable)
		if err != nil {
			return nil, err
		}
		storage, mctx = store, store
		s.close = func() { _ = store.Close() }
	case "file":
		storage = file.New(osfs.New(), c.LogFile, func() time.Time { return time.Now().UTC() })
		if c.DSN != "" {
			// the log lives in a file but scripts still need somewhere to run
			store, err := sqlstore.Open(ctx, "sqlite", c.DSN, c.SchemaTable)
			if err != nil {
				return nil, err
			}
			mctx = store
			s.close = func() { _ = store.Close() }
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Driver)
	}

	downDefault := im.DownLast
	if c.DownDefault == "all" {
		downDefault = im.DownAll
	}

	engine, err := im.New(im.Config{
		Source:      source,
		Storage:     storage,
		Context:     mctx,
		Logger:      o.logger,
		DownDefault: downDefault,
		Hooks:       o.hooks,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// locked opens a session and runs fn under the driver's migration lock.
func locked[T any](ctx context.Context, c icfg.Config, opts []Option, fn func(context.Context, *im.Engine) (T, error)) (T, error) {
	var out T
	s, err := open(ctx, c, opts)
	if err != nil {
		return out, err
	}
	defer s.close()

	err = s.lock(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx, s.engine)
		return err
	})
	return out, err
}

// RunUp applies the migrations chosen by sel. The zero Selection applies
// everything pending. Migrations completed before a failure are returned along
// with the error.
func RunUp(ctx context.Context, c icfg.Config, sel Selection, opts ...Option) ([]Migration, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]Migration, error) {
		return e.Up(ctx, sel)
	})
}

// RunDown reverts the migrations chosen by sel. The zero Selection reverts the
// last applied migration, or all of them with down_default: all.
func RunDown(ctx context.Context, c icfg.Config, sel Selection, opts ...Option) ([]Migration, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]Migration, error) {
		return e.Down(ctx, sel)
	})
}

// RunRedo rolls back and then reapplies the last migration.
func RunRedo(ctx context.Context, c icfg.Config, opts ...Option) ([]Migration, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]Migration, error) {
		return e.Redo(ctx)
	})
}

// Executed returns the applied migrations in catalog order.
func Executed(ctx context.Context, c icfg.Config, opts ...Option) ([]Migration, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]Migration, error) {
		return e.Executed(ctx)
	})
}

// Pending returns the migrations not applied yet in catalog order.
func Pending(ctx context.Context, c icfg.Config, opts ...Option) ([]Migration, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]Migration, error) {
		return e.Pending(ctx)
	})
}

// Status returns the migration status for all migrations.
func Status(ctx context.Context, c icfg.Config, opts ...Option) ([]StatusRow, error) {
	return locked(ctx, c, opts, func(ctx context.Context, e *im.Engine) ([]StatusRow, error) {
		return e.Status(ctx)
	})
}

// DBVersion returns the name of the last applied migration in catalog order,
// or an empty string when nothing has been applied.
func DBVersion(ctx context.Context, c icfg.Config, opts ...Option) (string, error) {
	executed, err := Executed(ctx, c, opts...)
	if err != nil {
		return "", err
	}
	if len(executed) == 0 {
		return "", nil
	}
	return executed[len(executed)-1].Name, nil
}
