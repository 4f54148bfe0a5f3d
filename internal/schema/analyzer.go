package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"db-mirror/internal/dialect"
)

// ---------------------------------------------------------------------
// Schema Analysis Logic
// ---------------------------------------------------------------------

// Analyze reflects the tables of schemaName into a Schema. Every failure is
// returned as a *ReflectionError.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, schemaName string) (*Schema, error) {
	// [Interface-First]: Delegate schema resolution to the dialect
	target := d.GetSchemaName(schemaName)

	// Normalized keys (UPPERCASE) for case-insensitive matching (Oracle support)
	tableMap := make(map[string]*Table)
	var tables []*Table

	lookup := func(name string) *Table {
		return tableMap[strings.ToUpper(name)]
	}

	// --- Step 1: Fetch Tables ---
	err := queryEach(ctx, db, d.GetTablesQuery(target), target, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == SystemTable {
			return nil
		}
		t := &Table{Name: name}
		tableMap[strings.ToUpper(name)] = t
		tables = append(tables, t)
		return nil
	})
	if err != nil {
		return nil, &ReflectionError{Step: "tables", Err: err}
	}

	// --- Step 2: Fetch Columns ---
	err = queryEach(ctx, db, d.GetColumnsQuery(target), target, func(rows *sql.Rows) error {
		var tName, cName, dType, cType, cLen, isNull, extra sql.NullString
		if err := rows.Scan(&tName, &cName, &dType, &cType, &cLen, &isNull, &extra); err != nil {
			return fmt.Errorf("scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			return nil // Skip invalid rows
		}
		t := lookup(tName.String)
		if t == nil {
			return nil
		}

		// AutoInc Detection
		isAutoInc := false
		if extra.Valid {
			extraLower := strings.ToLower(extra.String)
			isAutoInc = strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "identity") ||
				strings.Contains(extraLower, "nextval") ||
				strings.Contains(extraLower, "rowid")
		}

		col := &Column{
			Name:          cName.String,
			Type:          ColumnType(d.NormalizeType(dType.String)),
			RawType:       cType.String,
			Nullable:      isNull.String == "YES",
			AutoIncrement: isAutoInc,
		}
		if col.Type == TypeEnum {
			col.EnumValues = dialect.ParseEnumValues(cType.String)
		}

		// Handle Length safely
		if cLen.Valid && cLen.String != "" {
			var length int
			if _, err := fmt.Sscanf(cLen.String, "%d", &length); err == nil {
				col.Length = length
			} else {
				var fLength float64
				if _, err := fmt.Sscanf(cLen.String, "%f", &fLength); err == nil {
					col.Length = int(fLength)
				}
			}
			// -1 is SQL Server's MAX
			if col.Length < 0 {
				col.Length = 0
			}
		}
		t.Columns = append(t.Columns, col)
		return nil
	})
	if err != nil {
		return nil, &ReflectionError{Step: "columns", Err: err}
	}

	// --- Step 3: Fetch Primary Keys (key order) ---
	err = queryEach(ctx, db, d.GetPrimaryKeysQuery(target), target, func(rows *sql.Rows) error {
		var tName, cName sql.NullString
		if err := rows.Scan(&tName, &cName); err != nil {
			return err
		}
		t := lookup(tName.String)
		if t == nil {
			return nil
		}
		if c := t.Column(cName.String); c != nil {
			c.PrimaryKey = true
			c.Nullable = false
			t.PrimaryKey = append(t.PrimaryKey, c.Name)
		}
		return nil
	})
	if err != nil {
		return nil, &ReflectionError{Step: "primary keys", Err: err}
	}

	// --- Step 4: Fetch Foreign Keys ---
	// One row per column; consecutive rows of the same constraint are merged.
	err = queryEach(ctx, db, d.GetForeignKeysQuery(target), target, func(rows *sql.Rows) error {
		var tName, cConst, cName, rTable, rCol sql.NullString
		if err := rows.Scan(&tName, &cConst, &cName, &rTable, &rCol); err != nil {
			return err
		}
		t := lookup(tName.String)
		if t == nil || !rTable.Valid {
			return nil
		}
		refName := rTable.String
		ref := lookup(refName)
		if ref != nil {
			refName = ref.Name // original case
		}

		var fk *ForeignKey
		if n := len(t.ForeignKeys); n > 0 && t.ForeignKeys[n-1].Name == cConst.String {
			fk = t.ForeignKeys[n-1]
		} else {
			fk = &ForeignKey{Name: cConst.String, RefTable: refName}
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}

		refCol := rCol.String
		if pos := len(fk.Columns); !rCol.Valid && ref != nil && pos < len(ref.PrimaryKey) {
			// SQLite leaves "to" empty when the FK targets the primary key.
			refCol = ref.PrimaryKey[pos]
		}
		fk.Columns = append(fk.Columns, cName.String)
		fk.RefColumns = append(fk.RefColumns, refCol)
		return nil
	})
	if err != nil {
		return nil, &ReflectionError{Step: "foreign keys", Err: err}
	}
	if d.Name() == "sqlite" {
		// SQLite constraint ids are only meaningful for grouping.
		for _, t := range tables {
			for _, fk := range t.ForeignKeys {
				fk.Name = ""
			}
		}
	}

	// --- Step 5: Fetch Indexes ---
	err = queryEach(ctx, db, d.GetIndexesQuery(target), target, func(rows *sql.Rows) error {
		var tName, iName, cName sql.NullString
		var unique sql.NullInt64
		if err := rows.Scan(&tName, &iName, &unique, &cName); err != nil {
			return err
		}
		t := lookup(tName.String)
		if t == nil || !iName.Valid || !cName.Valid {
			return nil
		}
		var idx *Index
		if n := len(t.Indexes); n > 0 && t.Indexes[n-1].Name == iName.String {
			idx = t.Indexes[n-1]
		} else {
			idx = &Index{Name: iName.String, Unique: unique.Int64 > 0}
			t.Indexes = append(t.Indexes, idx)
		}
		idx.Columns = append(idx.Columns, cName.String)
		return nil
	})
	if err != nil {
		return nil, &ReflectionError{Step: "indexes", Err: err}
	}

	s, err := NewSchema(tables...)
	if err != nil {
		return nil, &ReflectionError{Step: "model", Err: err}
	}
	return s, nil
}

// queryEach runs query with the schema argument and calls fn for every row.
func queryEach(ctx context.Context, db *sql.DB, query, target string, fn func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, target)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
