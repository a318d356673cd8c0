package migrator

import (
	"context"

	"migrator/internal/future"
)

// Storage is the durable log of executed migration names. Executed returns
// names in the order they were logged.
//
// The engine writes to a Storage from a single goroutine and never
// concurrently, but it does no locking across processes.
type Storage interface {
	LogMigration(ctx context.Context, name string) error
	UnlogMigration(ctx context.Context, name string) error
	Executed(ctx context.Context) ([]string, error)
}

// AsyncStorage is implemented by storages whose operations complete in the
// background. When a Storage also implements AsyncStorage, the engine uses
// these methods instead of the blocking ones.
type AsyncStorage interface {
	LogMigrationAsync(ctx context.Context, name string) *future.Future[struct{}]
	UnlogMigrationAsync(ctx context.Context, name string) *future.Future[struct{}]
	ExecutedAsync(ctx context.Context) *future.Future[[]string]
}

// futureStorage is the only view of storage the executor and engine use.
type futureStorage interface {
	logMigration(ctx context.Context, name string) *future.Future[struct{}]
	unlogMigration(ctx context.Context, name string) *future.Future[struct{}]
	executed(ctx context.Context) *future.Future[[]string]
}

func normalizeStorage(s Storage) futureStorage {
	if as, ok := s.(AsyncStorage); ok {
		return asyncStorage{as}
	}
	return syncStorage{s}
}

type syncStorage struct{ s Storage }

func (s syncStorage) logMigration(ctx context.Context, name string) *future.Future[struct{}] {
	return future.From(struct{}{}, s.s.LogMigration(ctx, name))
}

func (s syncStorage) unlogMigration(ctx context.Context, name string) *future.Future[struct{}] {
	return future.From(struct{}{}, s.s.UnlogMigration(ctx, name))
}

func (s syncStorage) executed(ctx context.Context) *future.Future[[]string] {
	return future.From(s.s.Executed(ctx))
}

type asyncStorage struct{ s AsyncStorage }

func (s asyncStorage) logMigration(ctx context.Context, name string) *future.Future[struct{}] {
	return s.s.LogMigrationAsync(ctx, name)
}

func (s asyncStorage) unlogMigration(ctx context.Context, name string) *future.Future[struct{}] {
	return s.s.UnlogMigrationAsync(ctx, name)
}

func (s asyncStorage) executed(ctx context.Context) *future.Future[[]string] {
	return s.s.ExecutedAsync(ctx)
}
