package store

import (
	"errors"
	"fmt"
)

// PersistenceError represents a store read/write failure: the database is
// unreachable, a statement failed, or a payload could not be committed.
//
// Consumers that own user-visible state (cart, orders) propagate it;
// the replication layer degrades to its last known good state instead.
type PersistenceError struct {
	// Op is the store operation that failed (read, write, append, ...).
	Op string

	// Key is the affected store key, if any.
	Key string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence returns true if the error is a store persistence error.
// Uses errors.As to handle wrapped errors.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
