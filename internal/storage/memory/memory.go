// Package memory provides in-process storages for the executed migration log.
// They are mostly useful in tests and for dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"migrator/internal/future"
)

// Storage keeps the executed log in memory.
type Storage struct {
	mu  sync.Mutex
	log []string
}

// New returns a storage whose log starts with executed.
func New(executed ...string) *Storage {
	return &Storage{log: slices.Clone(executed)}
}

func (s *Storage) LogMigration(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = append(s.log, name)
	return nil
}

// UnlogMigration removes the last occurrence of name.
func (s *Storage) UnlogMigration(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i] == name {
			s.log = slices.Delete(s.log, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("migration %s is not in the executed log", name)
}

func (s *Storage) Executed(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.log), nil
}

// AsyncStorage wraps Storage so that every operation completes on a separate
// goroutine and is reported through a future.
type AsyncStorage struct {
	*Storage
}

// NewAsync returns an asynchronous storage whose log starts with executed.
func NewAsync(executed ...string) *AsyncStorage {
	return &AsyncStorage{Storage: New(executed...)}
}

func (s *AsyncStorage) LogMigrationAsync(ctx context.Context, name string) *future.Future[struct{}] {
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.LogMigration(ctx, name)
	})
}

func (s *AsyncStorage) UnlogMigrationAsync(ctx context.Context, name string) *future.Future[struct{}] {
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.UnlogMigration(ctx, name)
	})
}

func (s *AsyncStorage) ExecutedAsync(ctx context.Context) *future.Future[[]string] {
	return future.Go(ctx, s.Executed)
}
