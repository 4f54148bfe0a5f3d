package engine

import (
	"fmt"

	"db-mirror/internal/schema"
)

// WriteError is a failed upsert of a single row.
type WriteError struct {
	Table string
	Key   schema.Row
	Err   error
}

func (e *WriteError) Error() string {
	if e.Key.Len() > 0 {
		return fmt.Sprintf("write %s (%s): %v", e.Table, e.Key, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// QueryError is a failed read during verification.
type QueryError struct {
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Table, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
