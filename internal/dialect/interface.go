package dialect

import (
	"context"
	"database/sql"
)

// Semantic column types. Dialects translate native catalog types into these
// and back into native DDL when creating tables.
const (
	TypeInteger  = "integer"
	TypeText     = "text"
	TypeDecimal  = "decimal"
	TypeBoolean  = "boolean"
	TypeEnum     = "enum"
	TypeBinary   = "binary"
	TypeDatetime = "datetime"
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ColumnDef is the engine independent column description used for DDL.
type ColumnDef struct {
	Name          string
	Type          string // one of the Type* constants
	Length        int
	Nullable      bool
	AutoIncrement bool
	EnumValues    []string
	Native        string // source engine type, e.g. decimal(10,2)
}

// ForeignKeyDef describes a foreign key constraint for DDL.
type ForeignKeyDef struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection). Every query takes the schema
	// name as its only bind argument.
	GetTablesQuery(schema string) string      // table
	GetColumnsQuery(schema string) string     // table, column, data type, column type, length, nullable, extra
	GetPrimaryKeysQuery(schema string) string // table, column (in key order)
	GetForeignKeysQuery(schema string) string // table, constraint, column, ref table, ref column
	GetIndexesQuery(schema string) string     // table, index, unique, column (in index order)

	// Execution Hooks (Table Level) - For IDENTITY_INSERT etc.
	// identity is the auto increment column of the table, "" when there is none.
	BeforeTable(ctx context.Context, ex Execer, table, identity string) error
	AfterTable(ctx context.Context, ex Execer, table, identity string) error

	// Query Generation
	QuoteIdent(name string) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	InsertQuery(table string, cols []string) string
	UpsertQuery(table string, cols, keys []string) string
	SelectQuery(table string, cols []string) string
	SelectByKeyQuery(table string, cols, keys []string) string
	CountQuery(table string) string
	TruncateQuery(table string) string
	CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string
	CreateIndexQuery(table, index string, cols []string, unique bool) string

	// Helpers
	NormalizeType(sqlType string) string
	ColumnType(c ColumnDef) string
	GetSchemaName(input string) string
	// IndexNamesGlobal reports whether index names must be unique across
	// the whole schema rather than per table.
	IndexNamesGlobal() bool
}
