package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCycle             = errors.New("foreign key cycle")
	ErrDanglingReference = errors.New("dangling foreign key reference")
)

// CycleError is returned by Resolve when tables depend on each other.
// Tables lists only the tables that sit on a cycle.
type CycleError struct {
	Tables []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("foreign key cycle between tables: %s", strings.Join(e.Tables, ", "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// DanglingReferenceError is returned by Resolve when a foreign key targets a
// table missing from the schema.
type DanglingReferenceError struct {
	Table    string
	RefTable string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("table %s references missing table %s", e.Table, e.RefTable)
}

func (e *DanglingReferenceError) Is(target error) bool { return target == ErrDanglingReference }

// ReflectionError wraps any failure to read the catalog of a database.
type ReflectionError struct {
	Step string
	Err  error
}

func (e *ReflectionError) Error() string {
	return fmt.Sprintf("schema reflection failed (%s): %v", e.Step, e.Err)
}

func (e *ReflectionError) Unwrap() error { return e.Err }
