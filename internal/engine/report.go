package engine

import (
	"fmt"

	"db-mirror/internal/schema"
)

// Outcome is the overall verification verdict.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFatal
	OutcomeDataMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFatal:
		return "fatal"
	case OutcomeDataMismatch:
		return "diff"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode is the process status reported for the outcome.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeFatal:
		return 2
	default:
		return 3
	}
}

// Message is the fixed summary line printed at the end of a run.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSuccess:
		return "Verification successful, every table, column, and row present in the source db is present in the destination db."
	case OutcomeFatal:
		return "Verification fatal, a table or column was not created in the destination db. " +
			"Check the DDL errors reported above before running the migration again."
	default:
		return "Verification found differences between the data in the source and destination databases. " +
			"Differences are listed above together with the primary key of each row. They may be expected, " +
			"e.g. due to data type or encoding differences between engines; examine them closely as adjustments may be necessary."
	}
}

type FindingKind string

const (
	FindingMissingTable  FindingKind = "missing_table"
	FindingMissingColumn FindingKind = "missing_column"
	FindingMissingRow    FindingKind = "missing_row"
	FindingDuplicateRow  FindingKind = "duplicate_row"
	FindingValueMismatch FindingKind = "value_mismatch"
)

// Structural reports whether the finding invalidates data comparison.
func (k FindingKind) Structural() bool {
	return k == FindingMissingTable || k == FindingMissingColumn
}

// Finding is one difference between source and destination.
type Finding struct {
	Kind   FindingKind
	Table  string
	Column string     // empty for table and row level findings
	Key    schema.Row // primary key of the row, empty for structural findings
	Source any
	Dest   any
	// Matches is the number of destination rows found for Key.
	Matches int
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingMissingTable:
		return fmt.Sprintf("destination table `%s` missing", f.Table)
	case FindingMissingColumn:
		return fmt.Sprintf("destination column `%s` is missing from table `%s`", f.Column, f.Table)
	case FindingMissingRow:
		return fmt.Sprintf("Table: %s %s: row missing from destination", f.Table, f.Key)
	case FindingDuplicateRow:
		return fmt.Sprintf("Table: %s %s: %d destination rows share the key", f.Table, f.Key, f.Matches)
	default:
		return fmt.Sprintf("Table: %s %s Column: %s, SOURCE Value: %v, DEST Value: %v",
			f.Table, f.Key, f.Column, f.Source, f.Dest)
	}
}

// TableSummary counts verified rows of one table.
type TableSummary struct {
	Table    string
	Rows     int
	Verified int
}

// Report is the complete result of a verification pass.
type Report struct {
	Outcome  Outcome
	Findings []Finding
	Tables   []TableSummary
	// Skipped lists tables without a primary key; their rows cannot be matched.
	Skipped []string
}

func (r *Report) finish() {
	switch {
	case len(r.Findings) == 0:
		r.Outcome = OutcomeSuccess
	case r.Findings[0].Kind.Structural():
		r.Outcome = OutcomeFatal
	default:
		r.Outcome = OutcomeDataMismatch
	}
}
