package migrator

import (
	im "migrator/internal/migrator"
	"migrator/internal/source/sqlfile"
)

type (
	Migration   = im.Migration
	Action      = im.Action
	Func        = im.Func
	AsyncFunc   = im.AsyncFunc
	Selection   = im.Selection
	Direction   = im.Direction
	Hooks       = im.Hooks
	StatusRow   = im.StatusRow
	State       = im.State
	Storage     = im.Storage
	Source      = im.Source
	DownDefault = im.DownDefault

	CatalogError    = im.CatalogError
	NotFoundError   = im.NotFoundError
	NotPendingError = im.NotPendingError
	ExecutionError  = im.ExecutionError

	// Execer is implemented by the migration context of every database
	// driver. Go migrations can use it to run SQL.
	Execer = sqlfile.Execer
)

const (
	Up   = im.Up
	Down = im.Down

	StateApplied = im.StateApplied
	StatePending = im.StatePending
	StateMissing = im.StateMissing
)

// Only selects a single migration by name.
func Only(name string) Selection { return im.Only(name) }

// List selects the named migrations.
func List(names ...string) Selection { return im.List(names...) }

// To selects every candidate up to and including name.
func To(name string) Selection { return im.To(name) }

// AllMigrations selects every candidate.
func AllMigrations() Selection { return im.AllMigrations() }

// StepCount selects the first n candidates.
func StepCount(n int) Selection { return im.StepCount(n) }

// SelectionFromArgs builds a selection from command line arguments.
func SelectionFromArgs(names []string, to string) (Selection, error) {
	return im.SelectionFromArgs(names, to)
}

// Names maps migrations to their names.
func Names(migrations []Migration) []string { return im.Names(migrations) }
