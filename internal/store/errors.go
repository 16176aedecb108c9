package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for the store layer. Check with errors.Is.
var (
	// ErrNotInitialized means an operation ran before the database was
	// opened (or after Close). This is an ordering bug in the caller,
	// not a user-facing condition.
	ErrNotInitialized = errors.New("store: database not initialized")

	// ErrNotFound is returned by update/delete operations targeting a
	// missing record. Plain reads return nil on miss instead.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey is returned when a create collides with an
	// existing id. Callers retry with a fresh id.
	ErrDuplicateKey = errors.New("store: duplicate key")

	// ErrTransactionAborted wraps a failed commit; the transaction has
	// been rolled back and no records from it were written.
	ErrTransactionAborted = errors.New("store: transaction aborted")
)

// InitError reports that the database failed to open. It is fatal to
// the session but retryable by user action.
type InitError struct {
	Cause error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("store: initialization failed: %v", e.Cause)
}

func (e *InitError) Unwrap() error { return e.Cause }
