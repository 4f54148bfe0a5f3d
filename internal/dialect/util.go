package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultNormalizeType maps a native type name onto a semantic type.
// Unknown types are treated as text.
func DefaultNormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	base := t
	if i := strings.IndexAny(t, "( "); i > 0 {
		base = t[:i]
	}
	switch base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint",
		"int2", "int4", "int8", "serial", "smallserial", "bigserial", "year":
		return TypeInteger
	case "decimal", "numeric", "number", "money", "smallmoney",
		"float", "double", "real", "float4", "float8", "binary_float", "binary_double":
		return TypeDecimal
	case "bool", "boolean", "bit":
		return TypeBoolean
	case "enum":
		return TypeEnum
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary",
		"bytea", "image", "raw":
		return TypeBinary
	case "date", "datetime", "datetime2", "smalldatetime", "datetimeoffset",
		"timestamp", "timestamptz", "time", "timetz":
		return TypeDatetime
	}
	if t == "long raw" {
		return TypeBinary
	}
	return TypeText
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// ParseEnumValues extracts the members of a MySQL style enum('a','b') column type.
func ParseEnumValues(columnType string) []string {
	open := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if open < 0 || end <= open {
		return nil
	}
	return splitQuoted(columnType[open+1 : end])
}

// splitQuoted splits 'a','b''c' into [a b'c].
func splitQuoted(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && inQuote && i+1 < len(s) && s[i+1] == '\'':
			cur.WriteByte('\'')
			i++
		case c == '\'':
			inQuote = !inQuote
			if !inQuote {
				out = append(out, cur.String())
				cur.Reset()
			}
		case inQuote:
			cur.WriteByte(c)
		}
	}
	return out
}

func enumLength(values []string) int {
	maxLen := 1
	for _, v := range values {
		if n := len([]rune(v)); n > maxLen {
			maxLen = n
		}
	}
	return maxLen
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// nonKey returns cols minus keys, preserving order.
func nonKey(cols, keys []string) []string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var out []string
	for _, c := range cols {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}

func buildInsert(d Dialect, table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdent(table), quoteList(d, cols), vals)
}

func buildSelect(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", quoteList(d, cols), d.QuoteIdent(table))
}

func buildSelectByKey(d Dialect, table string, cols, keys []string) string {
	conds := make([]string, len(keys))
	for i, k := range keys {
		conds[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(k), d.Placeholder(i))
	}
	return fmt.Sprintf("%s WHERE %s", buildSelect(d, table, cols), strings.Join(conds, " AND "))
}

// buildOnConflict renders the INSERT ... ON CONFLICT form shared by PostgreSQL and SQLite.
func buildOnConflict(d Dialect, table string, cols, keys []string) string {
	insert := buildInsert(d, table, cols)
	if len(keys) == 0 {
		return insert
	}
	updates := nonKey(cols, keys)
	if len(updates) == 0 {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, quoteList(d, keys))
	}
	sets := make([]string, len(updates))
	for i, c := range updates {
		q := d.QuoteIdent(c)
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, quoteList(d, keys), strings.Join(sets, ", "))
}

// buildMerge renders a MERGE statement. source is the SELECT producing one
// row of bound values aliased to the column names.
func buildMerge(d Dialect, target, source string, cols, keys []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s tgt USING (%s) src ON (", target, source)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" AND ")
		}
		q := d.QuoteIdent(k)
		fmt.Fprintf(&b, "tgt.%s = src.%s", q, q)
	}
	b.WriteString(")")
	if updates := nonKey(cols, keys); len(updates) > 0 {
		sets := make([]string, len(updates))
		for i, c := range updates {
			q := d.QuoteIdent(c)
			sets[i] = fmt.Sprintf("tgt.%s = src.%s", q, q)
		}
		fmt.Fprintf(&b, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}
	vals := make([]string, len(cols))
	for i, c := range cols {
		vals[i] = "src." + d.QuoteIdent(c)
	}
	fmt.Fprintf(&b, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)", quoteList(d, cols), strings.Join(vals, ", "))
	return b.String()
}

// mergeSource renders "SELECT ? AS a, ? AS b" for buildMerge.
func mergeSource(d Dialect, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s AS %s", d.Placeholder(i), d.QuoteIdent(c))
	}
	return "SELECT " + strings.Join(parts, ", ")
}

func buildCreateTable(d Dialect, table string, cols []ColumnDef, pk []string, fks []ForeignKeyDef) string {
	var defs []string
	for _, c := range cols {
		def := fmt.Sprintf("%s %s", d.QuoteIdent(c.Name), d.ColumnType(c))
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(pk) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteList(d, pk)))
	}
	for _, fk := range fks {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteList(d, fk.Columns), d.QuoteIdent(fk.RefTable), quoteList(d, fk.RefColumns))
		if fk.Name != "" {
			def = fmt.Sprintf("CONSTRAINT %s %s", d.QuoteIdent(fk.Name), def)
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.QuoteIdent(table), strings.Join(defs, ",\n\t"))
}

func buildCreateIndex(d Dialect, table, index string, cols []string, unique bool) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, d.QuoteIdent(index), d.QuoteIdent(table), quoteList(d, cols))
}

// numericSpec reads a native numeric type such as "decimal(10,2) unsigned"
// or "double precision". precision and scale are 0 when not declared.
func numericSpec(native string) (float bool, precision, scale int) {
	t := strings.ToLower(strings.TrimSpace(native))
	base, args := t, ""
	if i := strings.IndexByte(t, '('); i >= 0 {
		base = t[:i]
		if j := strings.IndexByte(t[i:], ')'); j > 0 {
			args = t[i+1 : i+j]
		}
	}
	if f := strings.Fields(base); len(f) > 0 {
		base = f[0]
	}
	switch base {
	case "float", "double", "real", "float4", "float8", "binary_float", "binary_double":
		return true, 0, 0
	}
	if args == "" {
		return false, 0, 0
	}
	parts := strings.Split(args, ",")
	precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if precision <= 0 || scale < 0 || scale > precision {
		return false, 0, 0
	}
	return false, precision, scale
}
