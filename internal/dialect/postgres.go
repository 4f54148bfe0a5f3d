package dialect

import (
	"context"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	// use $1 placeholder
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`
}

func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	// udt_name resolves domain and array types better than data_type; column_default
	// plays the role of MySQL's EXTRA for serial detection.
	return `SELECT
    c.table_name,
    c.column_name,
    c.data_type,
    c.udt_name,
    c.character_maximum_length,
    c.is_nullable,
    CASE WHEN c.is_identity = 'YES' THEN 'identity' ELSE COALESCE(c.column_default, '') END
FROM information_schema.columns c
JOIN information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetPrimaryKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.column_name
FROM information_schema.key_column_usage kcu
JOIN information_schema.table_constraints tc
    ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND kcu.table_name = tc.table_name
WHERE kcu.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.table_name, kcu.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT kcu.table_name, kcu.constraint_name, kcu.column_name, rcu.table_name, rcu.column_name
FROM information_schema.referential_constraints rc
JOIN information_schema.key_column_usage kcu
    ON kcu.constraint_name = rc.constraint_name AND kcu.constraint_schema = rc.constraint_schema
JOIN information_schema.key_column_usage rcu
    ON rcu.constraint_name = rc.unique_constraint_name AND rcu.constraint_schema = rc.unique_constraint_schema
    AND rcu.ordinal_position = kcu.position_in_unique_constraint
WHERE kcu.table_schema = $1
ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`
}

func (d *PostgresDialect) GetIndexesQuery(schema string) string {
	return `SELECT t.relname, i.relname, ix.indisunique::int, a.attname
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND NOT ix.indisprimary
AND NOT EXISTS (SELECT 1 FROM pg_constraint c WHERE c.conindid = ix.indexrelid AND c.contype = 'u')
ORDER BY t.relname, i.relname, k.ord`
}

func (d *PostgresDialect) BeforeTable(ctx context.Context, ex Execer, table, identity string) error {
	return nil
}

// AfterTable moves the identity sequence past the copied values, otherwise the
// next application insert collides with a migrated key.
func (d *PostgresDialect) AfterTable(ctx context.Context, ex Execer, table, identity string) error {
	if identity == "" {
		return nil
	}
	col := d.QuoteIdent(identity)
	query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence(%s, %s), COALESCE(MAX(%s), 1)) FROM %s",
		quoteLiteral(d.QuoteIdent(table)), quoteLiteral(identity), col, d.QuoteIdent(table))
	_, err := ex.ExecContext(ctx, query)
	return err
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	return buildInsert(d, table, cols)
}

func (d *PostgresDialect) UpsertQuery(table string, cols, keys []string) string {
	return buildOnConflict(d, table, cols, keys)
}

func (d *PostgresDialect) SelectQuery(table string, cols []string) string {
	return buildSelect(d, table, cols)
}

func (d *PostgresDialect) SelectByKeyQuery(table string, cols, keys []string) string {
	return buildSelectByKey(d, table, cols, keys)
}

func (d *PostgresDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *PostgresDialect) TruncateQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", d.QuoteIdent(table))
}

func (d *PostgresDialect) CreateTableQuery(table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	return buildCreateTable(d, table, cols, pk, fks)
}

func (d *PostgresDialect) CreateIndexQuery(table, index string, cols []string, unique bool) string {
	return buildCreateIndex(d, table, index, cols, unique)
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "user-defined", "array", "json", "jsonb", "uuid":
		return TypeText
	default:
		return DefaultNormalizeType(t)
	}
}

func (d *PostgresDialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case TypeInteger:
		if c.AutoIncrement {
			return "BIGINT GENERATED BY DEFAULT AS IDENTITY"
		}
		return "BIGINT"
	case TypeDecimal:
		float, p, s := numericSpec(c.Native)
		switch {
		case float:
			return "DOUBLE PRECISION"
		case p > 0 && p <= 1000:
			return fmt.Sprintf("NUMERIC(%d,%d)", p, s)
		}
		return "NUMERIC"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeEnum:
		return fmt.Sprintf("VARCHAR(%d)", enumLength(c.EnumValues))
	case TypeBinary:
		return "BYTEA"
	case TypeDatetime:
		return "TIMESTAMP"
	default:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length)
		}
		return "TEXT"
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) IndexNamesGlobal() bool { return true }
