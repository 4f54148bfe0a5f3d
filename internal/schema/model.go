package schema

import (
	"fmt"
	"sort"

	"db-mirror/internal/dialect"
)

// ColumnType is the engine independent type of a column.
type ColumnType string

const (
	TypeInteger  ColumnType = dialect.TypeInteger
	TypeText     ColumnType = dialect.TypeText
	TypeDecimal  ColumnType = dialect.TypeDecimal
	TypeBoolean  ColumnType = dialect.TypeBoolean
	TypeEnum     ColumnType = dialect.TypeEnum
	TypeBinary   ColumnType = dialect.TypeBinary
	TypeDatetime ColumnType = dialect.TypeDatetime
)

// SystemTable is created by SQLite for AUTOINCREMENT bookkeeping and is never migrated.
const SystemTable = "sqlite_sequence"

type Column struct {
	Name          string
	Type          ColumnType
	RawType       string // engine native name, informational only
	Length        int
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	EnumValues    []string
}

type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []string // key order, may be empty
	ForeignKeys []*ForeignKey
	Indexes     []*Index
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) HasPrimaryKey() bool {
	return len(t.PrimaryKey) > 0
}

// Dependencies returns the distinct tables referenced by t's foreign keys,
// excluding t itself, in declaration order.
func (t *Table) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == t.Name || seen[fk.RefTable] {
			continue
		}
		seen[fk.RefTable] = true
		deps = append(deps, fk.RefTable)
	}
	return deps
}

// IdentityColumn returns the auto increment column name, "" if there is none.
func (t *Table) IdentityColumn() string {
	for _, c := range t.Columns {
		if c.AutoIncrement {
			return c.Name
		}
	}
	return ""
}

// Schema is the set of tables reflected from one database. It is not
// modified after construction.
type Schema struct {
	tables map[string]*Table
	names  []string
}

// NewSchema builds a Schema, dropping SystemTable and rejecting duplicate names.
func NewSchema(tables ...*Table) (*Schema, error) {
	s := &Schema{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if t.Name == SystemTable {
			continue
		}
		if _, dup := s.tables[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q in schema", t.Name)
		}
		s.tables[t.Name] = t
		s.names = append(s.names, t.Name)
	}
	sort.Strings(s.names)
	return s, nil
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *Table {
	return s.tables[name]
}

// Names returns all table names in sorted order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Tables returns all tables ordered by name.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, len(s.names))
	for i, n := range s.names {
		out[i] = s.tables[n]
	}
	return out
}

func (s *Schema) Len() int {
	return len(s.names)
}
