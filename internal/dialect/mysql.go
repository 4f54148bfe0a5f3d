package dialect

import (
	"context"
	"fmt"
	"strings"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`
}

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE, EXTRA FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetPrimaryKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND CONSTRAINT_NAME = 'PRIMARY' ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetIndexesQuery(schema string) string {
	// FK constraints get a backing index of the same name; it is recreated with the constraint.
	return `SELECT s.TABLE_NAME, s.INDEX_NAME, CASE WHEN s.NON_UNIQUE = 0 THEN 1 ELSE 0 END, s.COLUMN_NAME
FROM information_schema.STATISTICS s
WHERE s.TABLE_SCHEMA = ? AND s.INDEX_NAME <> 'PRIMARY'
AND NOT EXISTS (
	SELECT 1 FROM information_schema.TABLE_CONSTRAINTS tc
	WHERE tc.TABLE_SCHEMA = s.TABLE_SCHEMA AND tc.TABLE_NAME = s.TABLE_NAME
	AND tc.CONSTRAINT_NAME = s.INDEX_NAME AND tc.CONSTRAINT_TYPE = 'FOREIGN KEY')
ORDER BY s.TABLE_NAME, s.INDEX_NAME, s.SEQ_IN_INDEX`
}

// BeforeTable disables FK checks for the session so self referencing rows
// can arrive before their parent row.
func (d *MysqlDialect) BeforeTable(ctx context.Context, ex Execer, table, identity string) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	return err
}

func (d *MysqlDialect) AfterTable(ctx context.Context, ex Execer, table, identity string) error {
	_, err := ex.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}

func (d *MysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(d, table, cols)
}

func (d *MysqlDialect) UpsertQuery(table string, cols, keys []string) string {
	insert := buildInsert(d, table, cols)
	if len(keys) == 0 {
		return insert
	}
	updates := nonKey(cols, keys)
	if len(updates) == 0 {
		q := d.QuoteIdent(keys[0])
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s = %s", insert, q, q)
	}
	sets := make([]string, len(updates))
	for i, c := range updates {
		q := d.QuoteIdent(c)
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", q, q)
	}
	return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", insert, strings.Join(sets, ", "))
}

func (d *MysqlDialect) SelectQuery(table string, cols []string) string {
	return buildSelect(d, table, cols)
}

func (d *MysqlDialect) SelectByKeyQuery(table string, cols, keys []string) string {
	return buildSelectByKey(d, table, cols, keys)
}

func (d *MysqlDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *MysqlDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *MysqlDialect) CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	return buildCreateTable(d, table, cols, pk, fks)
}

func (d *MysqlDialect) CreateIndexQuery(table, index string, cols []string, unique bool) string {
	return buildCreateIndex(d, table, index, cols, unique)
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case TypeInteger:
		if c.AutoIncrement {
			return "BIGINT AUTO_INCREMENT"
		}
		return "BIGINT"
	case TypeDecimal:
		float, p, s := numericSpec(c.Native)
		switch {
		case float:
			return "DOUBLE"
		case p > 0 && p <= 65 && s <= 30:
			return fmt.Sprintf("DECIMAL(%d,%d)", p, s)
		}
		return "DECIMAL(65,30)"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeEnum:
		if len(c.EnumValues) == 0 {
			return "VARCHAR(255)"
		}
		vals := make([]string, len(c.EnumValues))
		for i, v := range c.EnumValues {
			vals[i] = quoteLiteral(v)
		}
		return fmt.Sprintf("ENUM(%s)", strings.Join(vals, ", "))
	case TypeBinary:
		return "LONGBLOB"
	case TypeDatetime:
		return "DATETIME(6)"
	default:
		if c.Length > 0 && c.Length <= 16383 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
		return "LONGTEXT"
	}
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *MysqlDialect) IndexNamesGlobal() bool { return false }
