package migrator

import (
	"context"
	"slices"

	"migrator/internal/future"
)

// Direction represents the direction of a migration (Up or Down).
type Direction int

const (
	// Up represents a forward migration.
	Up Direction = iota
	// Down represents a rollback migration.
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Action is the executable half of a migration. Start may finish the work
// before returning or hand back a future that resolves later; callers only
// ever wait on the returned future.
type Action interface {
	Start(ctx context.Context, mctx any) *future.Future[struct{}]
}

// Func is an Action that completes before returning.
type Func func(ctx context.Context, mctx any) error

// Start runs f on the caller's goroutine.
func (f Func) Start(ctx context.Context, mctx any) *future.Future[struct{}] {
	if f == nil {
		return future.Resolved(struct{}{})
	}
	return future.From(struct{}{}, f(ctx, mctx))
}

// AsyncFunc is an Action that reports completion through a future.
type AsyncFunc func(ctx context.Context, mctx any) *future.Future[struct{}]

// Start invokes f and returns its future.
func (f AsyncFunc) Start(ctx context.Context, mctx any) *future.Future[struct{}] {
	if f == nil {
		return future.Resolved(struct{}{})
	}
	return f(ctx, mctx)
}

// Migration is a named, reversible unit of change. Name is the identifier used
// in the executed log and in selections.
type Migration struct {
	Name string
	Up   Action
	Down Action
}

func (m Migration) action(dir Direction) Action {
	if dir == Down {
		return m.Down
	}
	return m.Up
}

// Catalog is the ordered set of known migrations. It is built by Resolver and
// never modified afterwards.
type Catalog struct {
	migrations []Migration
	index      map[string]int
}

func newCatalog(migrations []Migration) Catalog {
	index := make(map[string]int, len(migrations))
	for i, m := range migrations {
		index[m.Name] = i
	}
	return Catalog{migrations: migrations, index: index}
}

// Migrations returns a copy of the catalog's migrations in order.
func (c Catalog) Migrations() []Migration { return slices.Clone(c.migrations) }

// Len returns the number of migrations in the catalog.
func (c Catalog) Len() int { return len(c.migrations) }

// Names returns migration names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c.migrations))
	for i, m := range c.migrations {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the migration with the given name.
func (c Catalog) Lookup(name string) (Migration, bool) {
	i, ok := c.index[name]
	if !ok {
		return Migration{}, false
	}
	return c.migrations[i], true
}

// Index returns the catalog position of name, or -1.
func (c Catalog) Index(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Names maps migrations to their names.
func Names(migrations []Migration) []string {
	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.Name
	}
	return names
}
