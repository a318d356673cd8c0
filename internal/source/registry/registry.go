// Package registry provides a migration source for migrations written in Go
// and registered from code.
package registry

import (
	"context"
	"fmt"
	"sync"

	im "migrator/internal/migrator"
)

// Registry stores registered Go migrations. It is safe for concurrent use so
// that packages may register from init functions.
type Registry struct {
	mu     sync.Mutex
	byName map[string]im.Migration
}

// New creates a new Registry instance.
func New() *Registry { return &Registry{byName: map[string]im.Migration{}} }

// Register adds a migration whose actions complete before returning. A nil
// down makes the migration irreversible in practice: reverting it only
// removes it from the log.
func (r *Registry) Register(name string, up, down im.Func) error {
	return r.add(im.Migration{Name: name, Up: up, Down: down})
}

// RegisterAsync adds a migration whose actions report through futures.
func (r *Registry) RegisterAsync(name string, up, down im.AsyncFunc) error {
	return r.add(im.Migration{Name: name, Up: up, Down: down})
}

func (r *Registry) add(m im.Migration) error {
	if m.Name == "" {
		return fmt.Errorf("go migration name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[m.Name]; exists {
		return fmt.Errorf("go migration %s already registered", m.Name)
	}
	r.byName[m.Name] = m
	return nil
}

// Migrations returns all registered migrations. Ordering is left to the
// engine's resolver.
func (r *Registry) Migrations(_ context.Context) ([]im.Migration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]im.Migration, 0, len(r.byName))
	for _, m := range r.byName {
		out = append(out, m)
	}
	return out, nil
}
