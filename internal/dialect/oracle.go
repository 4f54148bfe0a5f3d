package dialect

import (
	"context"
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) GetTablesQuery(schema string) string {
	// USER_TABLES lists tables owned by the current user.
	// We include a dummy clause to consume the schema argument if passed by standard callers.
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL`
}

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	return `
SELECT
    t.TABLE_NAME,
    t.COLUMN_NAME,
    CASE
        WHEN t.DATA_TYPE = 'NUMBER' AND COALESCE(t.DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' AND t.DATA_PRECISION IS NULL AND t.DATA_SCALE IS NULL THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' AND t.DATA_PRECISION = 1 THEN 'BOOLEAN'
        WHEN t.DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE t.DATA_TYPE
    END,
    t.DATA_TYPE,
    t.CHAR_LENGTH,
    CASE WHEN t.NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'auto_increment' ELSE '' END
FROM USER_TAB_COLUMNS t
JOIN USER_TABLES ut ON ut.TABLE_NAME = t.TABLE_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) GetPrimaryKeysQuery(schema string) string {
	return `
SELECT cc.TABLE_NAME, cc.COLUMN_NAME
FROM USER_CONS_COLUMNS cc
JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
WHERE uc.CONSTRAINT_TYPE = 'P' AND :1 IS NOT NULL
ORDER BY cc.TABLE_NAME, cc.POSITION`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT
    c.TABLE_NAME,
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND :1 IS NOT NULL
ORDER BY c.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) GetIndexesQuery(schema string) string {
	return `
SELECT i.TABLE_NAME, i.INDEX_NAME, CASE WHEN i.UNIQUENESS = 'UNIQUE' THEN 1 ELSE 0 END, ic.COLUMN_NAME
FROM USER_INDEXES i
JOIN USER_IND_COLUMNS ic ON ic.INDEX_NAME = i.INDEX_NAME
WHERE :1 IS NOT NULL
AND NOT EXISTS (SELECT 1 FROM USER_CONSTRAINTS c WHERE c.INDEX_NAME = i.INDEX_NAME AND c.CONSTRAINT_TYPE IN ('P', 'U'))
ORDER BY i.TABLE_NAME, i.INDEX_NAME, ic.COLUMN_POSITION`
}

func (d *OracleDialect) BeforeTable(ctx context.Context, ex Execer, table, identity string) error {
	return nil
}

func (d *OracleDialect) AfterTable(ctx context.Context, ex Execer, table, identity string) error {
	if identity == "" {
		return nil
	}
	// Identity columns are GENERATED BY DEFAULT so explicit values were accepted.
	_, err := ex.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s MODIFY %s GENERATED BY DEFAULT AS IDENTITY (START WITH LIMIT VALUE)",
		d.QuoteIdent(table), d.QuoteIdent(identity)))
	return err
}

func (d *OracleDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(d, table, cols)
}

func (d *OracleDialect) UpsertQuery(table string, cols, keys []string) string {
	if len(keys) == 0 {
		return buildInsert(d, table, cols)
	}
	return buildMerge(d, d.QuoteIdent(table), mergeSource(d, cols)+" FROM dual", cols, keys)
}

func (d *OracleDialect) SelectQuery(table string, cols []string) string {
	return buildSelect(d, table, cols)
}

func (d *OracleDialect) SelectByKeyQuery(table string, cols, keys []string) string {
	return buildSelectByKey(d, table, cols, keys)
}

func (d *OracleDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *OracleDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", d.QuoteIdent(table))
}

func (d *OracleDialect) CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	return buildCreateTable(d, table, cols, pk, fks)
}

func (d *OracleDialect) CreateIndexQuery(table, index string, cols []string, unique bool) string {
	return buildCreateIndex(d, table, index, cols, unique)
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	if strings.Contains(s, "char") || strings.Contains(s, "clob") {
		return TypeText
	}
	if strings.HasPrefix(s, "timestamp") || s == "date" {
		return TypeDatetime
	}
	return DefaultNormalizeType(s)
}

func (d *OracleDialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case TypeInteger:
		if c.AutoIncrement {
			return "NUMBER(19) GENERATED BY DEFAULT AS IDENTITY"
		}
		return "NUMBER(19)"
	case TypeDecimal:
		return "NUMBER"
	case TypeBoolean:
		return "NUMBER(1)"
	case TypeEnum:
		return fmt.Sprintf("VARCHAR2(%d CHAR)", enumLength(c.EnumValues))
	case TypeBinary:
		return "BLOB"
	case TypeDatetime:
		return "TIMESTAMP"
	default:
		if c.Length > 0 && c.Length <= 4000 {
			return fmt.Sprintf("VARCHAR2(%d CHAR)", c.Length)
		}
		return "CLOB"
	}
}

// GetSchemaName never returns "", Oracle binds an empty string as NULL and
// the catalog queries filter on :1 IS NOT NULL.
func (d *OracleDialect) GetSchemaName(input string) string {
	if input == "" {
		return "USER"
	}
	return input
}

func (d *OracleDialect) IndexNamesGlobal() bool { return true }
