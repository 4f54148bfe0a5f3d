// Package store implements the engine capabilities on top of database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"db-mirror/internal/dialect"
	"db-mirror/internal/engine"
	"db-mirror/internal/schema"

	"github.com/sirupsen/logrus"
)

// Store is one database connection pool together with its dialect.
type Store struct {
	DB         *sql.DB
	Dialect    dialect.Dialect
	SchemaName string
	Log        logrus.FieldLogger
}

var (
	_ engine.RowReader = (*Store)(nil)
	_ engine.RowWriter = (*Store)(nil)
	_ engine.KeyLookup = (*Store)(nil)
)

// Open connects to dsn and resolves the schema the catalog queries run against.
func Open(ctx context.Context, driver, dsn string, log logrus.FieldLogger) (*Store, error) {
	if driver == "" {
		driver = dialect.DetectDriver(dsn)
	}
	if driver == "sqlite3" {
		driver = "sqlite" // modernc.org/sqlite registers "sqlite"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	s := New(db, dialect.GetDialect(driver), log)

	// Fetch current database/schema name for Analyzer
	if driver == "mysql" {
		if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&s.SchemaName); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to get database name: %w", err)
		}
		if s.SchemaName == "" {
			db.Close()
			return nil, fmt.Errorf("no database selected in DSN")
		}
	}
	return s, nil
}

// New wraps an open pool.
func New(db *sql.DB, d dialect.Dialect, log logrus.FieldLogger) *Store {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Store{DB: db, Dialect: d, Log: log}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Reflect builds the Schema of the connected database.
func (s *Store) Reflect(ctx context.Context) (*schema.Schema, error) {
	return schema.Analyze(ctx, s.DB, s.Dialect, s.SchemaName)
}

func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.DB.QueryRowContext(ctx, s.Dialect.CountQuery(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// ReadRows streams every row of t, columns in t's order.
func (s *Store) ReadRows(ctx context.Context, t *schema.Table) (engine.RowIterator, error) {
	cols := t.ColumnNames()
	query := s.Dialect.SelectQuery(t.Name, cols)
	s.Log.WithField("table", t.Name).Trace(query)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &rowIterator{rows: rows, table: t, cols: cols}, nil
}

// LookupRows returns the rows of t matching every key column.
func (s *Store) LookupRows(ctx context.Context, t *schema.Table, key schema.Row) ([]schema.Row, error) {
	cols := t.ColumnNames()
	query := s.Dialect.SelectByKeyQuery(t.Name, cols, key.Columns)
	s.Log.WithField("table", t.Name).Tracef("%s %v", query, key.Values)

	rows, err := s.DB.QueryContext(ctx, query, key.Values...)
	if err != nil {
		return nil, err
	}
	it := &rowIterator{rows: rows, table: t, cols: cols}
	defer it.Close()

	var out []schema.Row
	for it.Next() {
		out = append(out, it.Row())
	}
	return out, it.Err()
}

type rowIterator struct {
	rows  *sql.Rows
	table *schema.Table
	cols  []string
	cur   schema.Row
	err   error
}

func (it *rowIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	values := make([]any, len(it.cols))
	ptrs := make([]any, len(it.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		it.err = err
		return false
	}
	for i, name := range it.cols {
		values[i] = normalize(it.table.Column(name), values[i])
	}
	it.cur = schema.NewRow(it.cols, values)
	return true
}

func (it *rowIterator) Row() schema.Row { return it.cur }

func (it *rowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowIterator) Close() error { return it.rows.Close() }

// normalize keeps text as string: some drivers hand back []byte, which
// other drivers would then bind as binary.
func normalize(c *schema.Column, v any) any {
	b, ok := v.([]byte)
	if !ok || c == nil || c.Type == schema.TypeBinary {
		return v
	}
	return string(b)
}
