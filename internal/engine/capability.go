package engine

import (
	"context"

	"db-mirror/internal/schema"
)

// RowIterator is a lazy, finite sequence of rows.
type RowIterator interface {
	Next() bool
	Row() schema.Row
	Err() error
	Close() error
}

// RowReader opens a fresh iteration over all rows of a table on every call.
type RowReader interface {
	ReadRows(ctx context.Context, t *schema.Table) (RowIterator, error)
}

// TableWriter upserts rows into one table. Close releases the writer's session.
type TableWriter interface {
	Upsert(ctx context.Context, row schema.Row) error
	Close() error
}

type RowWriter interface {
	OpenTable(ctx context.Context, t *schema.Table) (TableWriter, error)
}

// KeyLookup fetches the rows of t whose primary key equals key. Columns
// are selected by t's column names.
type KeyLookup interface {
	LookupRows(ctx context.Context, t *schema.Table, key schema.Row) ([]schema.Row, error)
}

// ProgressFunc is notified after rows are copied. It must not block.
type ProgressFunc func(table string, rows int64)
