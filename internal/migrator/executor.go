package migrator

import (
	"context"
	"log/slog"
	"time"
)

// Hooks are called around every migration the executor runs. Any of them may
// be nil.
type Hooks struct {
	Migrating func(name string)
	Migrated  func(name string, took time.Duration)
	Reverting func(name string)
	Reverted  func(name string, took time.Duration)
}

func (h Hooks) before(dir Direction, name string) {
	fn := h.Migrating
	if dir == Down {
		fn = h.Reverting
	}
	if fn != nil {
		fn(name)
	}
}

func (h Hooks) after(dir Direction, name string, took time.Duration) {
	fn := h.Migrated
	if dir == Down {
		fn = h.Reverted
	}
	if fn != nil {
		fn(name, took)
	}
}

// Executor runs planned migrations one after another and records each in
// storage as soon as it succeeds.
type Executor struct {
	storage futureStorage
	mctx    any
	logger  *slog.Logger
	hooks   Hooks
}

func newExecutor(storage futureStorage, mctx any, logger *slog.Logger, hooks Hooks) *Executor {
	return &Executor{storage: storage, mctx: mctx, logger: logger, hooks: hooks}
}

// Execute runs units in order. It stops at the first failure and returns the
// units completed so far together with an *ExecutionError.
func (e *Executor) Execute(ctx context.Context, units []Migration, dir Direction) ([]Migration, error) {
	completed := make([]Migration, 0, len(units))

	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return completed, &ExecutionError{Name: unit.Name, Direction: dir, Err: err}
		}

		e.logger.InfoContext(ctx, "Applying migration",
			slog.String("name", unit.Name),
			slog.String("direction", dir.String()),
		)
		e.hooks.before(dir, unit.Name)
		started := time.Now()

		if err := e.runOne(ctx, unit, dir); err != nil {
			e.logger.ErrorContext(ctx, "Migration failed",
				slog.String("name", unit.Name),
				slog.String("direction", dir.String()),
				slog.String("error", err.Error()),
			)
			return completed, &ExecutionError{Name: unit.Name, Direction: dir, Err: err}
		}

		took := time.Since(started)
		e.hooks.after(dir, unit.Name, took)
		e.logger.DebugContext(ctx, "Migration applied",
			slog.String("name", unit.Name),
			slog.String("direction", dir.String()),
			slog.Duration("took", took),
		)

		completed = append(completed, unit)
	}

	return completed, nil
}

// runOne waits for the action and the log write to finish even when ctx is
// canceled meanwhile, so a unit is never reported as failed while it is still
// running or after it was recorded. Cancellation is only honored between
// units.
func (e *Executor) runOne(ctx context.Context, unit Migration, dir Direction) error {
	wait := context.WithoutCancel(ctx)

	if action := unit.action(dir); action != nil {
		if _, err := action.Start(ctx, e.mctx).Await(wait); err != nil {
			return err
		}
	}

	write := e.storage.logMigration
	if dir == Down {
		write = e.storage.unlogMigration
	}
	_, err := write(wait, unit.Name).Await(wait)
	return err
}
