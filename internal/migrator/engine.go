// Package migrator provides the engine that applies and reverts ordered
// migrations while keeping a durable log of what has run.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Config contains configuration for Engine.
type Config struct {
	// Source lists the available migrations. Required.
	Source Source

	// Storage persists the executed log. Required. If it also implements
	// AsyncStorage, the asynchronous methods are used.
	Storage Storage

	// Context is passed untouched to every migration action.
	Context any

	// Logger is the structured logger to use. If none is specified, logs are
	// emitted to STDOUT at warn level or higher.
	Logger *slog.Logger

	// DownDefault chooses what Down targets without a selection. Defaults to
	// DownLast.
	DownDefault DownDefault

	// Hooks are invoked around each executed migration.
	Hooks Hooks
}

// Engine applies and reverts migrations. It does no locking: running two
// engines against the same storage at once is the caller's problem.
type Engine struct {
	resolver *Resolver
	planner  *Planner
	executor *Executor
	storage  futureStorage
	logger   *slog.Logger
}

// New returns an engine for the given configuration.
func New(config Config) (*Engine, error) {
	if config.Source == nil {
		return nil, errors.New("migration source is required")
	}
	if config.Storage == nil {
		return nil, errors.New("migration storage is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	}

	storage := normalizeStorage(config.Storage)

	return &Engine{
		resolver: &Resolver{Source: config.Source},
		planner:  &Planner{DownDefault: config.DownDefault},
		executor: newExecutor(storage, config.Context, logger, config.Hooks),
		storage:  storage,
		logger:   logger,
	}, nil
}

// Executed returns the catalog migrations present in the executed log, in
// catalog order.
func (e *Engine) Executed(ctx context.Context) ([]Migration, error) {
	catalog, executed, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(executed))
	for _, name := range executed {
		done[name] = struct{}{}
	}

	out := make([]Migration, 0, len(executed))
	for _, m := range catalog.migrations {
		if _, ok := done[m.Name]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// Pending returns the catalog migrations absent from the executed log, in
// catalog order.
func (e *Engine) Pending(ctx context.Context) ([]Migration, error) {
	catalog, executed, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return toMigrations(catalog, candidateNames(catalog, executed, Up))
}

// Up applies the migrations chosen by sel and returns the ones that completed.
// The zero Selection applies everything pending.
func (e *Engine) Up(ctx context.Context, sel Selection) ([]Migration, error) {
	return e.run(ctx, sel, Up)
}

// Down reverts the migrations chosen by sel and returns the ones that
// completed. The zero Selection reverts the most recent migration, or all of
// them when configured with DownAll.
func (e *Engine) Down(ctx context.Context, sel Selection) ([]Migration, error) {
	return e.run(ctx, sel, Down)
}

// Redo reverts the most recently executed migration and applies it again. If
// the second step fails the migration stays reverted and the error says so.
func (e *Engine) Redo(ctx context.Context) ([]Migration, error) {
	reverted, err := e.Down(ctx, StepCount(1))
	if err != nil {
		return nil, err
	}
	if len(reverted) == 0 {
		return reverted, nil
	}
	redone, err := e.Up(ctx, Only(reverted[0].Name))
	if err != nil {
		return nil, fmt.Errorf("%s was reverted but not re-applied: %w", reverted[0].Name, err)
	}
	return redone, nil
}

// State is the state of a single migration reported by Status.
type State string

const (
	StateApplied State = "applied"
	StatePending State = "pending"
	StateMissing State = "missing"
)

// StatusRow describes one migration in a Status report.
type StatusRow struct {
	Name  string
	State State
}

// Status reports every catalog migration as applied or pending, in catalog
// order, followed by logged names that no longer exist in the catalog.
func (e *Engine) Status(ctx context.Context) ([]StatusRow, error) {
	catalog, executed, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(executed))
	for _, name := range executed {
		done[name] = struct{}{}
	}

	rows := make([]StatusRow, 0, catalog.Len())
	for _, name := range catalog.Names() {
		state := StatePending
		if _, ok := done[name]; ok {
			state = StateApplied
		}
		rows = append(rows, StatusRow{Name: name, State: state})
	}
	for _, name := range executed {
		if catalog.Index(name) < 0 {
			rows = append(rows, StatusRow{Name: name, State: StateMissing})
		}
	}
	return rows, nil
}

func (e *Engine) run(ctx context.Context, sel Selection, dir Direction) ([]Migration, error) {
	logger := e.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("direction", dir.String()),
	)

	logger.DebugContext(ctx, "Resolving migrations", slog.String("selection", sel.String()))
	catalog, executed, err := e.load(ctx)
	if err != nil {
		logger.DebugContext(ctx, "Run failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.DebugContext(ctx, "Planning migrations",
		slog.Int("catalog", catalog.Len()),
		slog.Int("executed", len(executed)),
	)
	units, err := e.planner.Plan(catalog, executed, sel, dir)
	if err != nil {
		logger.DebugContext(ctx, "Run failed", slog.String("error", err.Error()))
		return nil, err
	}

	if len(units) == 0 {
		logger.InfoContext(ctx, "No migrations to apply")
		return units, nil
	}

	logger.DebugContext(ctx, "Executing migrations", slog.Any("names", Names(units)))
	completed, err := e.executor.Execute(ctx, units, dir)
	if err != nil {
		logger.DebugContext(ctx, "Run failed",
			slog.Int("completed", len(completed)),
			slog.String("error", err.Error()),
		)
		return completed, err
	}

	logger.DebugContext(ctx, "Run completed", slog.Int("completed", len(completed)))
	return completed, nil
}

func (e *Engine) load(ctx context.Context) (Catalog, []string, error) {
	catalog, err := e.resolver.Resolve(ctx)
	if err != nil {
		return Catalog{}, nil, err
	}

	executed, err := e.storage.executed(ctx).Await(ctx)
	if err != nil {
		return Catalog{}, nil, fmt.Errorf("failed to read executed migrations: %w", err)
	}

	return catalog, executed, nil
}
