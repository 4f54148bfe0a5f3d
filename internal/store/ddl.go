package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"db-mirror/internal/dialect"
	"db-mirror/internal/schema"
)

// ErrInvalidDestination is returned by CheckCreate.
var ErrInvalidDestination = errors.New("invalid destination")

// DDLError is a failed CREATE statement.
type DDLError struct {
	Table     string
	Statement string
	Err       error
}

func (e *DDLError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Table, e.Err)
}

func (e *DDLError) Unwrap() error { return e.Err }

// CheckCreate rejects plans the destination engine cannot create as is.
func (s *Store) CheckCreate(plan *schema.Plan) error {
	if !s.Dialect.IndexNamesGlobal() {
		return nil
	}
	owner := make(map[string]string)
	for _, t := range plan.Tables {
		for _, idx := range t.Indexes {
			key := strings.ToUpper(idx.Name)
			if prev, ok := owner[key]; ok {
				return fmt.Errorf("%w: index name %q used by both %s and %s; %s requires index names to be unique",
					ErrInvalidDestination, idx.Name, prev, t.Name, s.Dialect.Name())
			}
			owner[key] = t.Name
		}
	}
	return nil
}

// CreateTables creates the plan's tables missing from existing, in plan
// order, each followed by its indexes. It returns the created table names.
func (s *Store) CreateTables(ctx context.Context, plan *schema.Plan, existing *schema.Schema) ([]string, error) {
	var created []string
	for _, t := range plan.Tables {
		if existing != nil && existing.Table(t.Name) != nil {
			s.Log.WithField("table", t.Name).Debug("table exists, skipping create")
			continue
		}

		stmts := []string{s.Dialect.CreateTableQuery(t.Name, columnDefs(t), t.PrimaryKey, foreignKeyDefs(t))}
		for _, idx := range t.Indexes {
			stmts = append(stmts, s.Dialect.CreateIndexQuery(t.Name, idx.Name, idx.Columns, idx.Unique))
		}
		for _, stmt := range stmts {
			s.Log.WithField("table", t.Name).Trace(stmt)
			if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
				return created, &DDLError{Table: t.Name, Statement: stmt, Err: err}
			}
		}
		s.Log.WithField("table", t.Name).Info("created table")
		created = append(created, t.Name)
	}
	return created, nil
}

// Clean empties the plan's tables, dependents first. Failures are logged.
func (s *Store) Clean(ctx context.Context, plan *schema.Plan) {
	for i := len(plan.Tables) - 1; i >= 0; i-- {
		t := plan.Tables[i]
		if _, err := s.DB.ExecContext(ctx, s.Dialect.TruncateQuery(t.Name)); err != nil {
			s.Log.WithField("table", t.Name).WithError(err).Warn("failed to clean table")
			continue
		}
		s.Log.WithField("table", t.Name).Debug("cleaned table")
	}
}

func columnDefs(t *schema.Table) []dialect.ColumnDef {
	defs := make([]dialect.ColumnDef, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = dialect.ColumnDef{
			Name:          c.Name,
			Type:          string(c.Type),
			Length:        c.Length,
			Nullable:      c.Nullable,
			AutoIncrement: c.AutoIncrement,
			EnumValues:    c.EnumValues,
			Native:        c.RawType,
		}
	}
	return defs
}

func foreignKeyDefs(t *schema.Table) []dialect.ForeignKeyDef {
	defs := make([]dialect.ForeignKeyDef, len(t.ForeignKeys))
	for i, fk := range t.ForeignKeys {
		defs[i] = dialect.ForeignKeyDef{
			Name:       fk.Name,
			Columns:    fk.Columns,
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
		}
	}
	return defs
}
