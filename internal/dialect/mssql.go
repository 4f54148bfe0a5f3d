package dialect

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	// Use @p1 for schema binding
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	return `
		SELECT
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.IS_NULLABLE,
			CASE
				WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity'
				ELSE ''
			END AS EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) GetPrimaryKeysQuery(schema string) string {
	return `SELECT KCU.TABLE_NAME, KCU.COLUMN_NAME FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS T JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU ON T.CONSTRAINT_NAME = KCU.CONSTRAINT_NAME AND T.TABLE_SCHEMA = KCU.TABLE_SCHEMA WHERE T.CONSTRAINT_TYPE = 'PRIMARY KEY' AND T.TABLE_SCHEMA = @p1 ORDER BY KCU.TABLE_NAME, KCU.ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME AND KCU2.ORDINAL_POSITION = KCU1.ORDINAL_POSITION WHERE KCU1.TABLE_SCHEMA = @p1 ORDER BY KCU1.TABLE_NAME, KCU1.CONSTRAINT_NAME, KCU1.ORDINAL_POSITION`
}

func (d *MSSQLDialect) GetIndexesQuery(schema string) string {
	return `
		SELECT t.name, idx.name, CAST(idx.is_unique AS INT), col.name
		FROM sys.indexes idx
		JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
		JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
		JOIN sys.tables t ON idx.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND idx.is_primary_key = 0 AND idx.is_unique_constraint = 0
			AND idx.name IS NOT NULL AND ic.is_included_column = 0
		ORDER BY t.name, idx.name, ic.key_ordinal
	`
}

// BeforeTable allows explicit values in IDENTITY columns for the session.
func (d *MSSQLDialect) BeforeTable(ctx context.Context, ex Execer, table, identity string) error {
	if identity == "" {
		return nil
	}
	_, err := ex.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", d.QuoteIdent(table)))
	return err
}

func (d *MSSQLDialect) AfterTable(ctx context.Context, ex Execer, table, identity string) error {
	if identity == "" {
		return nil
	}
	_, err := ex.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", d.QuoteIdent(table)))
	return err
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(d, table, cols)
}

func (d *MSSQLDialect) UpsertQuery(table string, cols, keys []string) string {
	if len(keys) == 0 {
		return buildInsert(d, table, cols)
	}
	// MERGE must be terminated by a semicolon in T-SQL.
	return buildMerge(d, d.QuoteIdent(table)+" WITH (HOLDLOCK)", mergeSource(d, cols), cols, keys) + ";"
}

func (d *MSSQLDialect) SelectQuery(table string, cols []string) string {
	return buildSelect(d, table, cols)
}

func (d *MSSQLDialect) SelectByKeyQuery(table string, cols, keys []string) string {
	return buildSelectByKey(d, table, cols, keys)
}

func (d *MSSQLDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

// TruncateQuery uses DELETE, TRUNCATE is refused on tables referenced by a FK.
func (d *MSSQLDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *MSSQLDialect) CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	return buildCreateTable(d, table, cols, pk, fks)
}

func (d *MSSQLDialect) CreateIndexQuery(table, index string, cols []string, unique bool) string {
	return buildCreateIndex(d, table, index, cols, unique)
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "nvarchar", "nchar", "text", "ntext", "uniqueidentifier", "xml":
		return TypeText
	case "tinyint", "smallint", "int", "bigint":
		return TypeInteger
	default:
		return DefaultNormalizeType(t)
	}
}

func (d *MSSQLDialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case TypeInteger:
		if c.AutoIncrement {
			return "BIGINT IDENTITY(1,1)"
		}
		return "BIGINT"
	case TypeDecimal:
		float, p, s := numericSpec(c.Native)
		switch {
		case float:
			return "FLOAT"
		case p > 0 && p <= 38:
			return fmt.Sprintf("DECIMAL(%d,%d)", p, s)
		}
		return "DECIMAL(38,10)"
	case TypeBoolean:
		return "BIT"
	case TypeEnum:
		return fmt.Sprintf("NVARCHAR(%d)", enumLength(c.EnumValues))
	case TypeBinary:
		return "VARBINARY(MAX)"
	case TypeDatetime:
		return "DATETIME2"
	default:
		if c.Length > 0 && c.Length <= 4000 {
			return fmt.Sprintf("NVARCHAR(%d)", c.Length)
		}
		return "NVARCHAR(MAX)"
	}
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQLDialect) IndexNamesGlobal() bool { return false }
