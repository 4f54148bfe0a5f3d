package dialect

import (
	"context"
	"fmt"
	"strings"
)

// SqliteDialect targets modernc.org/sqlite. SQLite has no information_schema;
// the catalog is read through the pragma table-valued functions.
type SqliteDialect struct{}

func (d *SqliteDialect) Name() string { return "sqlite" }

func (d *SqliteDialect) GetTablesQuery(schema string) string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND ? IS NOT NULL ORDER BY name`
}

func (d *SqliteDialect) GetColumnsQuery(schema string) string {
	return `SELECT m.name, p.name, p.type, p.type, NULL,
    CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.pk = 1 AND lower(p.type) = 'integer'
        AND (SELECT COUNT(*) FROM pragma_table_info(m.name) x WHERE x.pk > 0) = 1
        THEN 'rowid' ELSE '' END
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND ? IS NOT NULL
ORDER BY m.name, p.cid`
}

func (d *SqliteDialect) GetPrimaryKeysQuery(schema string) string {
	return `SELECT m.name, p.name
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND p.pk > 0 AND ? IS NOT NULL
ORDER BY m.name, p.pk`
}

func (d *SqliteDialect) GetForeignKeysQuery(schema string) string {
	// SQLite FKs are anonymous; the id groups the columns of one constraint.
	return `SELECT m.name, CAST(f.id AS TEXT), f."from", f."table", f."to"
FROM sqlite_master m
JOIN pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND ? IS NOT NULL
ORDER BY m.name, f.id, f.seq`
}

func (d *SqliteDialect) GetIndexesQuery(schema string) string {
	return `SELECT m.name, il.name, il."unique", ii.name
FROM sqlite_master m
JOIN pragma_index_list(m.name) il
JOIN pragma_index_info(il.name) ii
WHERE m.type = 'table' AND il.origin = 'c' AND ? IS NOT NULL
ORDER BY m.name, il.name, ii.seqno`
}

func (d *SqliteDialect) BeforeTable(ctx context.Context, ex Execer, table, identity string) error {
	return nil
}

func (d *SqliteDialect) AfterTable(ctx context.Context, ex Execer, table, identity string) error {
	return nil
}

// QuoteIdent uses backticks. SQLite reads an unknown double-quoted
// identifier as a string literal.
func (d *SqliteDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *SqliteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SqliteDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(d, table, cols)
}

func (d *SqliteDialect) UpsertQuery(table string, cols, keys []string) string {
	return buildOnConflict(d, table, cols, keys)
}

func (d *SqliteDialect) SelectQuery(table string, cols []string) string {
	return buildSelect(d, table, cols)
}

func (d *SqliteDialect) SelectByKeyQuery(table string, cols, keys []string) string {
	return buildSelectByKey(d, table, cols, keys)
}

func (d *SqliteDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *SqliteDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *SqliteDialect) CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	return buildCreateTable(d, table, cols, pk, fks)
}

func (d *SqliteDialect) CreateIndexQuery(table, index string, cols []string, unique bool) string {
	return buildCreateIndex(d, table, index, cols, unique)
}

// NormalizeType follows SQLite's affinity rules for declared types the
// default mapping does not know.
func (d *SqliteDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	if t != TypeText {
		return t
	}
	s := strings.ToLower(sqlType)
	switch {
	case strings.Contains(s, "int"):
		return TypeInteger
	case strings.Contains(s, "real"), strings.Contains(s, "floa"), strings.Contains(s, "doub"):
		return TypeDecimal
	}
	return TypeText
}

func (d *SqliteDialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case TypeInteger:
		return "INTEGER"
	case TypeDecimal:
		return "NUMERIC"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeEnum:
		// SQLite has no ENUM; a VARCHAR wide enough for the longest member.
		return fmt.Sprintf("VARCHAR(%d)", enumLength(c.EnumValues))
	case TypeBinary:
		return "BLOB"
	case TypeDatetime:
		return "DATETIME"
	default:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
		return "TEXT"
	}
}

func (d *SqliteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SqliteDialect) IndexNamesGlobal() bool { return true }
