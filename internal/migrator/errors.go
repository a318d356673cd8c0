package migrator

import "fmt"

// CatalogError is returned when the migration source cannot be read or holds
// an invalid set of migrations. No migration runs when it occurs.
type CatalogError struct {
	Reason string
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid migration catalog: %s: %v", e.Reason, e.Err)
	}
	return "invalid migration catalog: " + e.Reason
}

func (e *CatalogError) Unwrap() error { return e.Err }

// NotFoundError is returned when a selection names a migration that is not in
// the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "Unable to find migration: " + e.Name
}

// NotPendingError is returned when a selection names a migration that exists
// but cannot run in the requested direction: it was already executed (up) or
// was never executed (down).
type NotPendingError struct {
	Name      string
	Direction Direction
}

func (e *NotPendingError) Error() string {
	if e.Direction == Down {
		return "Migration was not executed: " + e.Name
	}
	return "Migration is not pending: " + e.Name
}

// ExecutionError is returned when a migration action or the log write that
// follows it fails. Migrations completed before it stay recorded.
type ExecutionError struct {
	Name      string
	Direction Direction
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Direction, e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
